package harm

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned for importance ratings outside 1..10.
var ErrInvalidWeights = errors.New("invalid weights")

const (
	// MinWeight and MaxWeight bound every importance rating.
	MinWeight = 1
	MaxWeight = 10

	// weightedReferenceAge is the life expectancy the personal calibration
	// measures remaining years against. It is deliberately separate from
	// ReferenceAge.
	weightedReferenceAge = 78
	// ignoredWeight and below turn a factor off entirely.
	ignoredWeight = 2
	// weightedPregnancyBoost is the extra multiplier at full importance.
	weightedPregnancyBoost = 0.8
)

// Weights are personal importance ratings for each factor, from 1 (no
// influence) to 10 (critically important).
type Weights struct {
	Age            int `json:"age"`
	Health         int `json:"health"`
	Occupation     int `json:"occupation"`
	Criminal       int `json:"criminal"`
	LegalFault     int `json:"legalFault"`
	Pregnancy      int `json:"pregnancy"`
	Network        int `json:"network"`
	Species        int `json:"species"`
	NumberOfPeople int `json:"numberOfPeople"`
	Certainty      int `json:"certainty"`
}

// DefaultWeights is the starting point of the calibration survey.
func DefaultWeights() Weights {
	return Weights{
		Age:            5,
		Health:         5,
		Occupation:     5,
		Criminal:       5,
		LegalFault:     5,
		Pregnancy:      5,
		Network:        5,
		Species:        5,
		NumberOfPeople: 8,
		Certainty:      7,
	}
}

// Validate reports every rating outside MinWeight..MaxWeight.
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"age", w.Age},
		{"health", w.Health},
		{"occupation", w.Occupation},
		{"criminal", w.Criminal},
		{"legalFault", w.LegalFault},
		{"pregnancy", w.Pregnancy},
		{"network", w.Network},
		{"species", w.Species},
		{"numberOfPeople", w.NumberOfPeople},
		{"certainty", w.Certainty},
	}
	var errs []error
	for _, f := range fields {
		if f.v < MinWeight || f.v > MaxWeight {
			errs = append(errs, fmt.Errorf("%w: %s is %d, must be between %d and %d", ErrInvalidWeights, f.name, f.v, MinWeight, MaxWeight))
		}
	}
	return errors.Join(errs...)
}

// The personal calibration uses its own base values. Unlisted values are
// neutral, as in the canonical tables.
var (
	weightedSeverity = map[Severity]float64{
		SeverityNone:     0,
		SeverityMinor:    0.2,
		SeverityModerate: 0.2,
		SeveritySerious:  0.5,
		SeverityCritical: 0.8,
		SeverityFatal:    1.0,
	}
	weightedOccupation = map[Occupation]float64{
		OccupationUnemployed:        0.9,
		OccupationAverage:           1.0,
		OccupationSkilled:           1.1,
		OccupationProfessional:      1.2,
		OccupationLifesaving:        1.4,
		OccupationPrimaryResearcher: 1.3,
	}
	weightedHealth = map[Health]float64{
		HealthTerminal: 0.5,
		HealthChronic:  0.75,
		HealthHealthy:  1.0,
	}
	weightedCriminal = map[CriminalHistory]float64{
		CriminalNone:        1.0,
		CriminalMinor:       0.95,
		CriminalViolent:     0.85,
		CriminalActiveCrime: 0.6,
	}
	weightedLegalFault = map[LegalFault]float64{
		LegalFaultLegal:          1.0,
		LegalFaultMinorViolation: 0.95,
		LegalFaultJaywalking:     0.9,
		LegalFaultReckless:       0.8,
		LegalFaultFleeing:        0.7,
	}
	weightedSpecies = map[Species]float64{
		SpeciesHuman:     1.0,
		SpeciesPetDog:    0.2,
		SpeciesPetCat:    0.2,
		SpeciesLivestock: 0.1,
	}
	weightedNetwork = map[Dependents]float64{
		DependentsNone:             1.0,
		DependentsPartner:          1.1,
		DependentsParent:           1.2,
		DependentsSoleParent:       1.4,
		DependentsPrimaryCaregiver: 1.3,
	}
)

// scaled pulls base towards 1 by the importance rating.
func scaled(base float64, importance int) float64 {
	if importance <= ignoredWeight {
		return Neutral
	}
	return 1 + (base-1)*float64(importance)/MaxWeight
}

func weightedRemainingYears(age int) float64 {
	return math.Max(0, float64(weightedReferenceAge-age))
}

// WeightedPersonValue is the harm one person represents under the given
// personal weights.
func WeightedPersonValue(p PersonProfile, severity Severity, w Weights) float64 {
	remaining := weightedRemainingYears(p.Age)
	sev, ok := weightedSeverity[severity]
	if !ok {
		sev = weightedSeverity[SeverityMinor]
	}
	v := remaining * sev

	ageMult := Neutral
	if w.Age > ignoredWeight {
		ageMult = 1 + (remaining/weightedReferenceAge-0.5)*float64(w.Age)/MaxWeight
	}
	v *= ageMult
	v *= scaled(lookup(weightedOccupation, p.Occupation), w.Occupation)
	v *= scaled(lookup(weightedHealth, p.Health), w.Health)
	v *= scaled(lookup(weightedCriminal, p.CriminalHistory), w.Criminal)
	v *= scaled(lookup(weightedLegalFault, p.LegalFault), w.LegalFault)
	if p.Pregnant {
		v *= scaled(1+weightedPregnancyBoost, w.Pregnancy)
	}
	v *= scaled(lookup(weightedSpecies, p.Species), w.Species)
	v *= scaled(lookup(weightedNetwork, p.Dependents), w.Network)
	return v
}

// WeightedOptionValue combines both sides of an option. The per-person
// value is averaged over everyone involved, then scaled by the head count
// raised to the numberOfPeople exponent and discounted by uncertainty.
func WeightedOptionValue(o Option, w Weights) float64 {
	total := o.TotalPeople()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, side := range []OptionSide{o.Occupants, o.Pedestrians} {
		if n := side.People(); n > 0 {
			sum += float64(n) * WeightedPersonValue(side.Profile, o.Severity, w)
		}
	}
	mean := sum / float64(total)

	peopleExp := 1 + float64(w.NumberOfPeople-5)/MaxWeight
	certaintyFactor := 1 - (1-o.CertaintyFraction())*float64(w.Certainty)/MaxWeight
	return mean * math.Pow(float64(total), peopleExp) * certaintyFactor
}

// WeightedOption is one option scored under personal weights. Score is the
// option's share of the combined value, 0 to 100.
type WeightedOption struct {
	Label       string  `json:"label"`
	TotalPeople int     `json:"totalPeople"`
	Value       float64 `json:"value"`
	Score       float64 `json:"score"`
}

// WeightedResult compares two options under personal weights.
type WeightedResult struct {
	OptionA        WeightedOption `json:"optionA"`
	OptionB        WeightedOption `json:"optionB"`
	Recommendation Recommendation `json:"recommendation"`
	Weights        Weights        `json:"weights"`
}

// AnalyzeWeighted scores a scenario with personal weights. Options whose
// shares are within UtilityBand points of each other are neutral;
// otherwise the option with less harm is recommended.
func AnalyzeWeighted(s Scenario, w Weights) (WeightedResult, error) {
	if err := s.Validate(); err != nil {
		return WeightedResult{}, err
	}
	if err := w.Validate(); err != nil {
		return WeightedResult{}, err
	}

	a := WeightedOption{Label: s.OptionA.Label, TotalPeople: s.OptionA.TotalPeople(), Value: WeightedOptionValue(s.OptionA, w)}
	b := WeightedOption{Label: s.OptionB.Label, TotalPeople: s.OptionB.TotalPeople(), Value: WeightedOptionValue(s.OptionB, w)}

	a.Score, b.Score = NeutralConfidence, NeutralConfidence
	if total := a.Value + b.Value; total > 0 {
		a.Score = a.Value / total * 100
		b.Score = b.Value / total * 100
	}

	rec := RecommendNeutral
	switch {
	case math.Abs(a.Score-b.Score) < UtilityBand:
	case a.Value < b.Value:
		rec = RecommendOptionA
	default:
		rec = RecommendOptionB
	}
	return WeightedResult{OptionA: a, OptionB: b, Recommendation: rec, Weights: w}, nil
}
