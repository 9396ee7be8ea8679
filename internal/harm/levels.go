package harm

import (
	"fmt"
	"strings"
)

// Level is a named connectedness level.
type Level struct {
	Key   string       `json:"key"`
	Name  string       `json:"name"`
	Flags FeatureFlags `json:"flags"`
}

// CustomLevelName labels flag combinations without a canonical level.
const CustomLevelName = "Custom"

// Levels are the five canonical connectedness levels, least to most
// connected. None and Low share the same flags.
var Levels = []Level{
	{Key: "none", Name: "None (Demographic-Blind)"},
	{Key: "low", Name: "Low (Age Only)"},
	{Key: "medium", Name: "Medium (+ Occupation/Health/Criminal)", Flags: FeatureFlags{IncludeControversial: true}},
	{Key: "high", Name: "High (+ Legal/Pregnancy/Species)", Flags: FeatureFlags{IncludeControversial: true, IncludeExtendedFactors: true}},
	{Key: "max", Name: "Maximum (+ Network Effects)", Flags: FeatureFlags{IncludeControversial: true, IncludeExtendedFactors: true, IncludeNetworkEffects: true}},
}

// LevelByKey finds a canonical level by key ("none", "low", "medium",
// "high", "max") or by its display name.
func LevelByKey(key string) (Level, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "maximum" {
		k = "max"
	}
	for _, l := range Levels {
		if l.Key == k || strings.EqualFold(l.Name, key) {
			return l, nil
		}
	}
	return Level{}, fmt.Errorf("unknown connectedness level %q", key)
}

// LabelFor names the level a flag set corresponds to. When several levels
// share a flag set the first one wins, so all-false maps to None.
func LabelFor(flags FeatureFlags) string {
	for _, l := range Levels {
		if l.Flags == flags {
			return l.Name
		}
	}
	return CustomLevelName
}
