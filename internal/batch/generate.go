// Package batch generates scenario sets, evaluates them at every
// connectedness level and aggregates the results for export and reporting.
package batch

import (
	"fmt"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// GeneratedScenario is a scenario produced by Generate.
type GeneratedScenario struct {
	ID       string        `json:"id"`
	Index    int           `json:"index"`
	Scenario harm.Scenario `json:"scenario"`
}

// lcg is the 32-bit linear congruential generator used for reproducible
// scenario sets. Identical seeds give identical sets.
type lcg struct {
	state uint32
}

func newLCG(seed int64) *lcg {
	return &lcg{state: uint32(seed)}
}

// next returns a value in [0,1).
func (r *lcg) next() float64 {
	r.state = r.state*1664525 + 1013904223
	return float64(r.state) / (1 << 32)
}

// intn returns an integer in [min,max].
func (r *lcg) intn(min, max int) int {
	return int(r.next()*float64(max-min+1)) + min
}

func choose[T any](r *lcg, values []T) T {
	return values[int(r.next()*float64(len(values)))]
}

// generatedSeverities excludes none so every generated option hurts someone.
var generatedSeverities = harm.Severities[1:]

const (
	maxOccupants     = 4
	maxPedestrians   = 5
	minCertainty     = 70
	maxCertainty     = 100
	pregnancyChance  = 0.15
	pregnancyMinAge  = 18
	pregnancyMaxAge  = 45
	occupantMinAge   = 16
	occupantMaxAge   = 75
	pedestrianMinAge = 5
	pedestrianMaxAge = 85
)

func (r *lcg) profile(minAge, maxAge int) harm.PersonProfile {
	age := r.intn(minAge, maxAge)
	p := harm.PersonProfile{
		Age:             age,
		Occupation:      choose(r, harm.Occupations),
		Health:          choose(r, harm.HealthStatuses),
		CriminalHistory: choose(r, harm.CriminalHistories),
		LegalFault:      choose(r, harm.LegalFaults),
		VoluntaryRisk:   choose(r, harm.VoluntaryRisks),
	}
	if age >= pregnancyMinAge && age <= pregnancyMaxAge {
		p.Pregnant = r.next() < pregnancyChance
	}
	p.Species = choose(r, harm.SpeciesKinds)
	p.Dependents = choose(r, harm.DependentsRoles)
	return p
}

func (r *lcg) option(label string) harm.Option {
	o := harm.Option{
		Label:            label,
		Occupants:        harm.OptionSide{Count: r.intn(0, maxOccupants), Profile: harm.DefaultProfile()},
		Pedestrians:      harm.OptionSide{Count: r.intn(0, maxPedestrians), Profile: harm.DefaultProfile()},
		CertaintyPercent: float64(r.intn(minCertainty, maxCertainty)),
		Severity:         choose(r, generatedSeverities),
	}
	if o.Occupants.Count > 0 {
		o.Occupants.Profile = r.profile(occupantMinAge, occupantMaxAge)
	}
	if o.Pedestrians.Count > 0 {
		o.Pedestrians.Profile = r.profile(pedestrianMinAge, pedestrianMaxAge)
	}
	return o
}

// Generate draws count scenarios from seed. Scenarios with nobody in either
// option are redrawn, so every result is a valid scenario.
func Generate(count int, seed int64) []GeneratedScenario {
	r := newLCG(seed)
	out := make([]GeneratedScenario, 0, max(count, 0))
	for i := 0; i < count; i++ {
		var s harm.Scenario
		for {
			s = harm.Scenario{OptionA: r.option("Option A"), OptionB: r.option("Option B")}
			if s.Validate() == nil {
				break
			}
		}
		out = append(out, GeneratedScenario{ID: fmt.Sprintf("scenario-%d", i), Index: i, Scenario: s})
	}
	return out
}
