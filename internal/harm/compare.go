package harm

import (
	"fmt"
	"math"
)

// Recommendation is the comparator's verdict.
type Recommendation string

const (
	RecommendOptionA Recommendation = "optionA"
	RecommendOptionB Recommendation = "optionB"
	RecommendNeutral Recommendation = "neutral"
)

// TieBreak selects how close two options must be to be called neutral.
type TieBreak string

const (
	// TieBreakUtilityBand calls options within UtilityBand utility points neutral.
	TieBreakUtilityBand TieBreak = "utility-band"
	// TieBreakHarmDifference calls options within HarmEpsilon expected harm neutral.
	TieBreakHarmDifference TieBreak = "harm-difference"
)

const (
	// UtilityBand is the too-close-to-call width on the 0-100 utility scale.
	UtilityBand = 5.0
	// HarmEpsilon is the too-close-to-call width on raw expected harm.
	HarmEpsilon = 0.1
	// NeutralConfidence is reported for every neutral recommendation.
	NeutralConfidence = 50.0
)

// ParseTieBreak accepts the canonical names; empty means TieBreakUtilityBand.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakUtilityBand:
		return TieBreakUtilityBand, nil
	case TieBreakHarmDifference:
		return TieBreakHarmDifference, nil
	}
	return "", fmt.Errorf("unknown tie-break %q: must be %s or %s", s, TieBreakUtilityBand, TieBreakHarmDifference)
}

// ComparisonResult is the outcome of comparing two options.
type ComparisonResult struct {
	OptionA           OptionHarmResult `json:"optionA"`
	OptionB           OptionHarmResult `json:"optionB"`
	Recommendation    Recommendation   `json:"recommendation"`
	ConfidencePercent float64          `json:"confidence"`
	Difference        float64          `json:"difference"`
	TieBreak          TieBreak         `json:"tieBreak"`
}

// Compare scores both options with the utility-band tie-break.
func Compare(a, b OptionHarmResult) ComparisonResult {
	return CompareWith(a, b, TieBreakUtilityBand)
}

// CompareWith scores both options on the 0-100 utility scale and issues a
// recommendation using tb. Lower expected harm means higher utility.
func CompareWith(a, b OptionHarmResult, tb TieBreak) ComparisonResult {
	maxHarm := math.Max(a.ExpectedHarm, b.ExpectedHarm)
	a.UtilityScore = utility(a.ExpectedHarm, maxHarm)
	b.UtilityScore = utility(b.ExpectedHarm, maxHarm)

	res := ComparisonResult{
		OptionA:    a,
		OptionB:    b,
		Difference: math.Abs(a.ExpectedHarm - b.ExpectedHarm),
		TieBreak:   tb,
	}

	var neutral bool
	switch tb {
	case TieBreakHarmDifference:
		neutral = res.Difference < HarmEpsilon
	default:
		res.TieBreak = TieBreakUtilityBand
		neutral = math.Abs(a.UtilityScore-b.UtilityScore) < UtilityBand
	}

	switch {
	case neutral:
		res.Recommendation = RecommendNeutral
		res.ConfidencePercent = NeutralConfidence
	case a.UtilityScore > b.UtilityScore:
		res.Recommendation = RecommendOptionA
		res.ConfidencePercent = a.UtilityScore
	default:
		res.Recommendation = RecommendOptionB
		res.ConfidencePercent = b.UtilityScore
	}
	return res
}

func utility(expected, maxHarm float64) float64 {
	if maxHarm > 0 {
		return 100 - expected/maxHarm*100
	}
	return 50
}
