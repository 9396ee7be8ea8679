package harm

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genProfile draws profiles from the known category values.
func genProfile() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 110),
		gen.IntRange(0, len(Occupations)-1),
		gen.IntRange(0, len(HealthStatuses)-1),
		gen.IntRange(0, len(CriminalHistories)-1),
		gen.IntRange(0, len(LegalFaults)-1),
		gen.IntRange(0, len(VoluntaryRisks)-1),
		gen.IntRange(0, len(SpeciesKinds)-1),
		gen.IntRange(0, len(DependentsRoles)-1),
		gen.Bool(),
	).Map(func(v []interface{}) PersonProfile {
		return PersonProfile{
			Age:             v[0].(int),
			Occupation:      Occupations[v[1].(int)],
			Health:          HealthStatuses[v[2].(int)],
			CriminalHistory: CriminalHistories[v[3].(int)],
			LegalFault:      LegalFaults[v[4].(int)],
			VoluntaryRisk:   VoluntaryRisks[v[5].(int)],
			Species:         SpeciesKinds[v[6].(int)],
			Dependents:      DependentsRoles[v[7].(int)],
			Pregnant:        v[8].(bool),
		}
	})
}

func genFlags() gopter.Gen {
	return gopter.CombineGens(gen.Bool(), gen.Bool(), gen.Bool()).Map(func(v []interface{}) FeatureFlags {
		return FeatureFlags{
			IncludeControversial:   v[0].(bool),
			IncludeExtendedFactors: v[1].(bool),
			IncludeNetworkEffects:  v[2].(bool),
		}
	})
}

func genSeverity() gopter.Gen {
	return gen.IntRange(0, len(Severities)-1).Map(func(i int) Severity { return Severities[i] })
}

func genOption() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 5), genProfile(),
		gen.IntRange(0, 5), genProfile(),
		genSeverity(),
		gen.Float64Range(0, 100),
	).Map(func(v []interface{}) Option {
		return Option{
			Occupants:        OptionSide{Count: v[0].(int), Profile: v[1].(PersonProfile)},
			Pedestrians:      OptionSide{Count: v[2].(int), Profile: v[3].(PersonProfile)},
			Severity:         v[4].(Severity),
			CertaintyPercent: v[5].(float64),
		}
	})
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestLifeYearsLostProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("never negative, zero iff severity none", prop.ForAll(
		func(p PersonProfile, sev Severity, flags FeatureFlags) bool {
			v := ComputeLifeYearsLost(p, sev, flags)
			if v < 0 {
				return false
			}
			return (v == 0) == (sev == SeverityNone)
		},
		genProfile(), genSeverity(), genFlags(),
	))

	properties.Property("younger loses more at fatal severity", prop.ForAll(
		func(p PersonProfile, a1, gap int, flags FeatureFlags) bool {
			a2 := a1 + gap
			if a2 > ReferenceAge-1 {
				a2 = ReferenceAge - 1
			}
			if a2 <= a1 {
				return true
			}
			young, old := p, p
			young.Age, old.Age = a1, a2
			return ComputeLifeYearsLost(young, SeverityFatal, flags) > ComputeLifeYearsLost(old, SeverityFatal, flags)
		},
		genProfile(), gen.IntRange(0, 83), gen.IntRange(1, 40), genFlags(),
	))

	properties.Property("ages past the reference age share the floor", prop.ForAll(
		func(p PersonProfile, a1, a2 int, flags FeatureFlags) bool {
			x, y := p, p
			x.Age, y.Age = a1, a2
			return ComputeLifeYearsLost(x, SeverityFatal, flags) == ComputeLifeYearsLost(y, SeverityFatal, flags)
		},
		genProfile(), gen.IntRange(ReferenceAge-1, 120), gen.IntRange(ReferenceAge-1, 120), genFlags(),
	))

	properties.Property("multiplier order does not matter", prop.ForAll(
		func(p PersonProfile, sev Severity, flags FeatureFlags) bool {
			got := ComputeLifeYearsLost(p, sev, flags)

			// Apply the same factors in reverse order.
			mults := []float64{}
			if flags.IncludeNetworkEffects {
				mults = append(mults, p.Dependents.Multiplier())
			}
			if flags.IncludeExtendedFactors {
				mults = append(mults, p.VoluntaryRisk.Multiplier(), p.LegalFault.Multiplier())
				if p.Pregnant {
					mults = append(mults, PregnancyMultiplier)
				}
				mults = append(mults, p.Species.Multiplier())
			}
			if flags.IncludeControversial {
				mults = append(mults, p.CriminalHistory.Multiplier(), p.Occupation.Multiplier(), p.Health.Multiplier())
			}
			want := sev.BaseFraction()
			for _, m := range mults {
				want *= m
			}
			want *= float64(RemainingYears(p.Age))

			if want == 0 {
				return got == 0
			}
			return math.Abs(got-want)/want < 1e-9
		},
		genProfile(), genSeverity(), genFlags(),
	))

	properties.TestingRun(t)
}

func TestAnalyzeProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("analysis is idempotent", prop.ForAll(
		func(a, b Option, flags FeatureFlags) bool {
			s := Scenario{OptionA: a, OptionB: b}
			r1, err1 := AnalyzeScenario(s, flags)
			r2, err2 := AnalyzeScenario(s, flags)
			if err1 != nil || err2 != nil {
				return err1 == err2
			}
			return r1 == r2
		},
		genOption(), genOption(), genFlags(),
	))

	properties.Property("utility scores stay within 0-100", prop.ForAll(
		func(a, b Option, flags FeatureFlags) bool {
			r, err := AnalyzeScenario(Scenario{OptionA: a, OptionB: b}, flags)
			if err != nil {
				return true
			}
			for _, u := range []float64{r.OptionA.UtilityScore, r.OptionB.UtilityScore} {
				if u < 0 || u > 100 {
					return false
				}
			}
			return true
		},
		genOption(), genOption(), genFlags(),
	))

	properties.Property("recommendation never favors the higher harm", prop.ForAll(
		func(a, b Option, flags FeatureFlags) bool {
			r, err := AnalyzeScenario(Scenario{OptionA: a, OptionB: b}, flags)
			if err != nil {
				return true
			}
			switch r.Recommendation {
			case RecommendOptionA:
				return r.OptionA.ExpectedHarm < r.OptionB.ExpectedHarm
			case RecommendOptionB:
				return r.OptionB.ExpectedHarm < r.OptionA.ExpectedHarm
			}
			return r.ConfidencePercent == NeutralConfidence
		},
		genOption(), genOption(), genFlags(),
	))

	properties.TestingRun(t)
}
