package harm

import (
	"fmt"
	"strconv"
)

// Step is one entry of a calculation trace. Value is the running product
// after the step, so replaying the steps reproduces the final result.
type Step struct {
	Step        string  `json:"step"`
	Formula     string  `json:"formula"`
	Calculation string  `json:"calculation"`
	Value       float64 `json:"value"`
}

// RemainingYears returns the life-years left before ReferenceAge, never
// less than MinRemainingYears.
func RemainingYears(age int) int {
	if age < 0 {
		age = 0
	}
	if r := ReferenceAge - age; r > MinRemainingYears {
		return r
	}
	return MinRemainingYears
}

// ComputeLifeYearsLost returns the life-years lost by one person with the
// given profile at the given severity.
func ComputeLifeYearsLost(p PersonProfile, severity Severity, flags FeatureFlags) float64 {
	v, _ := lifeYearsLost(p, severity, flags, false)
	return v
}

// TraceLifeYearsLost is ComputeLifeYearsLost plus the ordered steps that
// produced the value.
func TraceLifeYearsLost(p PersonProfile, severity Severity, flags FeatureFlags) (float64, []Step) {
	return lifeYearsLost(p, severity, flags, true)
}

func lifeYearsLost(p PersonProfile, severity Severity, flags FeatureFlags, trace bool) (float64, []Step) {
	remaining := RemainingYears(p.Age)
	fraction := severity.BaseFraction()
	value := float64(remaining) * fraction

	var steps []Step
	if trace {
		ageFormula := fmt.Sprintf("%d - %d", ReferenceAge, p.Age)
		if p.Age >= ReferenceAge {
			ageFormula = "1 (minimum floor)"
		}
		steps = append(steps, Step{
			Step:        "Base Calculation",
			Formula:     fmt.Sprintf("max(1, %s) × %s", ageFormula, fmtMult(fraction)),
			Calculation: fmt.Sprintf("%.2f years × %s = %.2f", float64(remaining), fmtMult(fraction), value),
			Value:       value,
		})
	}

	// apply multiplies in a non-neutral factor and records it.
	apply := func(name, label string, mult float64) {
		if mult == Neutral {
			return
		}
		before := value
		value *= mult
		if trace {
			steps = append(steps, Step{
				Step:        name,
				Formula:     fmt.Sprintf("%.2f × %s", before, fmtMult(mult)),
				Calculation: fmt.Sprintf("%s (%sx)", label, fmtMult(mult)),
				Value:       value,
			})
		}
	}

	if flags.IncludeControversial {
		apply("Health", string(p.Health), p.Health.Multiplier())
		apply("Occupation", string(p.Occupation), p.Occupation.Multiplier())
		apply("Criminal", string(p.CriminalHistory), p.CriminalHistory.Multiplier())
	}

	if flags.IncludeExtendedFactors {
		apply("Species", string(p.Species), p.Species.Multiplier())
		if p.Pregnant {
			apply("Pregnancy", "Two lives", PregnancyMultiplier)
		}
		apply("Legal Fault", string(p.LegalFault), p.LegalFault.Multiplier())
		apply("Voluntary Risk", string(p.VoluntaryRisk), p.VoluntaryRisk.Multiplier())
	}

	if flags.IncludeNetworkEffects {
		apply("Network", string(p.Dependents), p.Dependents.Multiplier())
	}

	return value, steps
}

func fmtMult(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
