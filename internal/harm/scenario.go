// Package harm implements the harm-scoring pipeline for two-option
// autonomous-vehicle accident scenarios.
//
// Every function in this package is pure: results depend only on the
// arguments, nothing is cached and nothing is logged.
package harm

import (
	"encoding/json"
	"errors"
)

// ErrEmptyScenario is returned when neither option involves anyone.
var ErrEmptyScenario = errors.New("please add at least one person to one of the options")

// FeatureFlags gate which multiplier groups take part in the calculation.
type FeatureFlags struct {
	// IncludeControversial gates occupation, health and criminal history.
	IncludeControversial bool `json:"includeControversial"`
	// IncludeExtendedFactors gates species, pregnancy, legal fault and voluntary risk.
	IncludeExtendedFactors bool `json:"includeExtendedFactors"`
	// IncludeNetworkEffects gates the dependents multiplier.
	IncludeNetworkEffects bool `json:"includeNetworkEffects"`
}

// PersonProfile describes every person on one side of an option.
// Pregnant is not checked against age; that is up to the caller.
type PersonProfile struct {
	Age             int             `json:"age"`
	Occupation      Occupation      `json:"occupation"`
	Health          Health          `json:"health"`
	CriminalHistory CriminalHistory `json:"criminalHistory"`
	LegalFault      LegalFault      `json:"legalFault"`
	VoluntaryRisk   VoluntaryRisk   `json:"voluntaryRisk"`
	Species         Species         `json:"species"`
	Dependents      Dependents      `json:"dependents"`
	Pregnant        bool            `json:"pregnant"`
}

// DefaultProfile returns an average, healthy, law-abiding adult human with
// no dependents and age 0.
func DefaultProfile() PersonProfile {
	return PersonProfile{
		Occupation:      OccupationAverage,
		Health:          HealthHealthy,
		CriminalHistory: CriminalNone,
		LegalFault:      LegalFaultLegal,
		VoluntaryRisk:   RiskNormal,
		Species:         SpeciesHuman,
		Dependents:      DependentsNone,
	}
}

// UnmarshalJSON fills omitted fields from DefaultProfile.
func (p *PersonProfile) UnmarshalJSON(data []byte) error {
	type plain PersonProfile
	v := plain(DefaultProfile())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PersonProfile(v)
	return nil
}

// OptionSide is the occupant or pedestrian group of an option. The profile
// applies to all Count people.
type OptionSide struct {
	Count   int           `json:"count"`
	Profile PersonProfile `json:"profile"`
}

// UnmarshalJSON defaults the profile when it is omitted.
func (s *OptionSide) UnmarshalJSON(data []byte) error {
	type plain OptionSide
	v := plain{Profile: DefaultProfile()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = OptionSide(v)
	return nil
}

// People returns Count clamped at zero.
func (s OptionSide) People() int {
	if s.Count < 0 {
		return 0
	}
	return s.Count
}

// Option is one of the two choices in a scenario. Severity and certainty
// apply to both sides alike.
type Option struct {
	Label            string     `json:"label"`
	Occupants        OptionSide `json:"occupants"`
	Pedestrians      OptionSide `json:"pedestrians"`
	Severity         Severity   `json:"severity"`
	CertaintyPercent float64    `json:"certainty"`
}

// UnmarshalJSON defaults both sides, so an omitted side still carries the
// default profile.
func (o *Option) UnmarshalJSON(data []byte) error {
	type plain Option
	v := plain{
		Occupants:   OptionSide{Profile: DefaultProfile()},
		Pedestrians: OptionSide{Profile: DefaultProfile()},
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Option(v)
	return nil
}

// TotalPeople is the number of people across both sides.
func (o Option) TotalPeople() int {
	return o.Occupants.People() + o.Pedestrians.People()
}

// CertaintyFraction converts the certainty percentage to [0,1].
func (o Option) CertaintyFraction() float64 {
	return clamp(o.CertaintyPercent, 0, 100) / 100
}

// Scenario is the unit of comparison: exactly two options.
type Scenario struct {
	OptionA Option `json:"optionA"`
	OptionB Option `json:"optionB"`
}

// Validate rejects scenarios with nobody on either option.
func (s Scenario) Validate() error {
	if s.OptionA.TotalPeople() == 0 && s.OptionB.TotalPeople() == 0 {
		return ErrEmptyScenario
	}
	return nil
}

// OptionKey identifies an option within a scenario.
type OptionKey string

const (
	KeyOptionA OptionKey = "optionA"
	KeyOptionB OptionKey = "optionB"
)

// Option returns the option addressed by key.
func (s Scenario) Option(key OptionKey) Option {
	if key == KeyOptionB {
		return s.OptionB
	}
	return s.OptionA
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
