package nn

import (
	"strings"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// Numeric feature names understood by OptionFeatures.
var NumericFeatures = []string{
	"include_controversial", "include_extended", "include_network",
	"occupants", "occupant_age", "occupant_pregnant",
	"pedestrians", "pedestrian_age", "pedestrian_pregnant",
	"certainty", "total_people", "life_years_lost",
}

// Categorical feature names understood by OptionFeatures.
var CategoricalFeatures = []string{
	"option", "connectedness",
	"occupant_job", "occupant_health", "occupant_criminal", "occupant_legal_fault",
	"occupant_risk", "occupant_species", "occupant_network",
	"pedestrian_job", "pedestrian_health", "pedestrian_criminal", "pedestrian_legal_fault",
	"pedestrian_risk", "pedestrian_species", "pedestrian_network",
	"severity",
}

// OptionFeatures exposes one option of a scenario as model features.
type OptionFeatures struct {
	Option harm.Option
	Flags  harm.FeatureFlags
	Key    harm.OptionKey
}

// OptionLabel is the value of the "option" feature for key; the model was
// trained on the bulk export, which numbers the options.
func OptionLabel(key harm.OptionKey) string {
	if key == harm.KeyOptionB {
		return "option2"
	}
	return "option1"
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Numeric implements FeatureSource. Unknown names are zero.
func (f OptionFeatures) Numeric(name string) float64 {
	o := f.Option
	switch name {
	case "include_controversial":
		return b2f(f.Flags.IncludeControversial)
	case "include_extended":
		return b2f(f.Flags.IncludeExtendedFactors)
	case "include_network":
		return b2f(f.Flags.IncludeNetworkEffects)
	case "occupants":
		return float64(o.Occupants.People())
	case "occupant_age":
		return float64(o.Occupants.Profile.Age)
	case "occupant_pregnant":
		return b2f(o.Occupants.Profile.Pregnant)
	case "pedestrians":
		return float64(o.Pedestrians.People())
	case "pedestrian_age":
		return float64(o.Pedestrians.Profile.Age)
	case "pedestrian_pregnant":
		return b2f(o.Pedestrians.Profile.Pregnant)
	case "certainty":
		return o.CertaintyPercent
	case "total_people":
		return float64(o.TotalPeople())
	case "life_years_lost":
		return harm.ComputeOptionHarm(o, f.Flags).LifeYearsLost
	}
	return 0
}

// Categorical implements FeatureSource. Unknown names are empty.
func (f OptionFeatures) Categorical(name string) string {
	occ, ped := f.Option.Occupants.Profile, f.Option.Pedestrians.Profile
	switch name {
	case "option":
		return OptionLabel(f.Key)
	case "connectedness":
		return harm.LabelFor(f.Flags)
	case "severity":
		return string(f.Option.Severity)
	}
	if v, ok := profileCategorical(name, "occupant_", occ); ok {
		return v
	}
	if v, ok := profileCategorical(name, "pedestrian_", ped); ok {
		return v
	}
	return ""
}

func profileCategorical(name, prefix string, p harm.PersonProfile) (string, bool) {
	field, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return "", false
	}
	switch field {
	case "job":
		return string(p.Occupation), true
	case "health":
		return string(p.Health), true
	case "criminal":
		return string(p.CriminalHistory), true
	case "legal_fault":
		return string(p.LegalFault), true
	case "risk":
		return string(p.VoluntaryRisk), true
	case "species":
		return string(p.Species), true
	case "network":
		return string(p.Dependents), true
	}
	return "", false
}
