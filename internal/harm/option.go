package harm

// UncertaintyBand is a heuristic symmetric band around life-years lost. It
// is not a statistical confidence interval.
type UncertaintyBand struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// OptionHarmResult is the computed harm of one option.
type OptionHarmResult struct {
	Label             string          `json:"label"`
	TotalPeople       int             `json:"totalPeople"`
	LifeYearsLost     float64         `json:"lifeYearsLost"`
	CertaintyFraction float64         `json:"certainty"`
	ExpectedHarm      float64         `json:"expectedHarm"`
	SeverityScore     int             `json:"severityScore"`
	UncertaintyBand   UncertaintyBand `json:"uncertaintyRange"`
	UtilityScore      float64         `json:"utilityScore"`
}

// ComputeOptionHarm aggregates both sides of an option. A side with no
// people is never evaluated, whatever its profile holds. UtilityScore is
// left at zero; it only has meaning relative to another option and is set
// by Compare.
func ComputeOptionHarm(o Option, flags FeatureFlags) OptionHarmResult {
	var lifeYears float64
	if n := o.Occupants.People(); n > 0 {
		lifeYears += float64(n) * ComputeLifeYearsLost(o.Occupants.Profile, o.Severity, flags)
	}
	if n := o.Pedestrians.People(); n > 0 {
		lifeYears += float64(n) * ComputeLifeYearsLost(o.Pedestrians.Profile, o.Severity, flags)
	}

	certainty := o.CertaintyFraction()
	return OptionHarmResult{
		Label:             o.Label,
		TotalPeople:       o.TotalPeople(),
		LifeYearsLost:     lifeYears,
		CertaintyFraction: certainty,
		ExpectedHarm:      lifeYears * certainty,
		SeverityScore:     o.Severity.Score(),
		UncertaintyBand:   bandFor(lifeYears, certainty),
	}
}

func bandFor(lifeYears, certainty float64) UncertaintyBand {
	spread := lifeYears * (1 - certainty) * 0.5
	lower := lifeYears - spread
	if lower < 0 {
		lower = 0
	}
	return UncertaintyBand{Lower: lower, Upper: lifeYears + spread}
}

// SideTrace holds the per-person trace for one side of an option.
type SideTrace struct {
	Count         int     `json:"count"`
	PerPerson     float64 `json:"perPerson"`
	LifeYearsLost float64 `json:"lifeYearsLost"`
	Steps         []Step  `json:"steps"`
}

// OptionTrace explains how an option's life-years lost were reached.
// Sides with no people are nil.
type OptionTrace struct {
	Occupants   *SideTrace `json:"occupants,omitempty"`
	Pedestrians *SideTrace `json:"pedestrians,omitempty"`
}

// TraceOption returns the calculation steps for both sides of o.
func TraceOption(o Option, flags FeatureFlags) OptionTrace {
	side := func(s OptionSide) *SideTrace {
		n := s.People()
		if n == 0 {
			return nil
		}
		v, steps := TraceLifeYearsLost(s.Profile, o.Severity, flags)
		return &SideTrace{Count: n, PerPerson: v, LifeYearsLost: float64(n) * v, Steps: steps}
	}
	return OptionTrace{Occupants: side(o.Occupants), Pedestrians: side(o.Pedestrians)}
}
