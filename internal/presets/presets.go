// Package presets holds the canned scenarios offered to users and used as
// fixtures throughout the test suite.
package presets

import (
	"fmt"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// Preset is a named scenario template.
type Preset struct {
	Key         string        `json:"key"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Scenario    harm.Scenario `json:"scenario"`
}

type personFn func(*harm.PersonProfile)

func hit(label string, n, age int, opts ...personFn) harm.Option {
	p := harm.DefaultProfile()
	p.Age = age
	for _, fn := range opts {
		fn(&p)
	}
	return harm.Option{
		Label:            label,
		Occupants:        harm.OptionSide{Profile: harm.DefaultProfile()},
		Pedestrians:      harm.OptionSide{Count: n, Profile: p},
		Severity:         harm.SeverityFatal,
		CertaintyPercent: 100,
	}
}

var catalog = []Preset{
	{
		Key:         "classicTrolley",
		Name:        "Classic Trolley",
		Description: "5 people vs 1, all else equal",
		Scenario: harm.Scenario{
			OptionA: hit("Stay on Track", 5, 40),
			OptionB: hit("Switch Track", 1, 40),
		},
	},
	{
		Key:         "youngVsOld",
		Name:        "Young vs Old",
		Description: "3 elderly vs 1 child",
		Scenario: harm.Scenario{
			OptionA: hit("Hit Elderly", 3, 75),
			OptionB: hit("Hit Child", 1, 8),
		},
	},
	{
		Key:         "doctorVsCriminal",
		Name:        "Doctor vs Criminal",
		Description: "Hit doctor or violent offender",
		Scenario: harm.Scenario{
			OptionA: hit("Hit Criminal", 1, 35, func(p *harm.PersonProfile) { p.CriminalHistory = harm.CriminalViolent }),
			OptionB: hit("Hit Doctor", 1, 35, func(p *harm.PersonProfile) { p.Occupation = harm.OccupationLifesaving }),
		},
	},
	{
		Key:         "jaywalker",
		Name:        "Legal vs Jaywalker",
		Description: "Legal crosser vs jaywalker",
		Scenario: harm.Scenario{
			OptionA: hit("Hit Legal Pedestrian", 1, 40, func(p *harm.PersonProfile) { p.VoluntaryRisk = harm.RiskInnocent }),
			OptionB: hit("Hit Jaywalker", 1, 40, func(p *harm.PersonProfile) {
				p.LegalFault = harm.LegalFaultJaywalking
				p.VoluntaryRisk = harm.RiskRisky
			}),
		},
	},
	{
		Key:         "pregnantWoman",
		Name:        "Pregnant Woman",
		Description: "1 pregnant woman vs 2 people",
		Scenario: harm.Scenario{
			OptionA: hit("Hit Two People", 2, 40),
			OptionB: hit("Hit Pregnant Woman", 1, 28, func(p *harm.PersonProfile) { p.Pregnant = true }),
		},
	},
	{
		Key:         "petVsPerson",
		Name:        "Pet vs Person",
		Description: "Dog vs human stranger",
		Scenario: harm.Scenario{
			OptionA: hit("Hit Dog", 1, 0, func(p *harm.PersonProfile) { p.Species = harm.SpeciesPetDog }),
			OptionB: hit("Hit Person", 1, 40),
		},
	},
}

// All returns the catalog in display order. The slice is a copy.
func All() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

// Get looks a preset up by key or by display name.
func Get(key string) (Preset, error) {
	for _, p := range catalog {
		if p.Key == key || p.Name == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", key)
}

// Default is the scenario a fresh session starts with.
func Default() harm.Scenario {
	occupant := harm.DefaultProfile()
	occupant.Age = 35
	pedestrian := harm.DefaultProfile()
	pedestrian.Age = 45
	return harm.Scenario{
		OptionA: harm.Option{
			Label:            "Option A",
			Occupants:        harm.OptionSide{Count: 1, Profile: occupant},
			Pedestrians:      harm.OptionSide{Profile: harm.DefaultProfile()},
			Severity:         harm.SeverityMinor,
			CertaintyPercent: 90,
		},
		OptionB: harm.Option{
			Label:            "Option B",
			Occupants:        harm.OptionSide{Profile: harm.DefaultProfile()},
			Pedestrians:      harm.OptionSide{Count: 2, Profile: pedestrian},
			Severity:         harm.SeveritySerious,
			CertaintyPercent: 95,
		},
	}
}

// Simple is the one-versus-one scenario shown in simple mode: continue and
// sacrifice the occupant, or swerve into a pedestrian of the same age.
func Simple() harm.Scenario {
	p := harm.DefaultProfile()
	p.Age = 35
	return harm.Scenario{
		OptionA: harm.Option{
			Label:            "Option A - Continue",
			Occupants:        harm.OptionSide{Count: 1, Profile: p},
			Pedestrians:      harm.OptionSide{Profile: harm.DefaultProfile()},
			Severity:         harm.SeverityFatal,
			CertaintyPercent: 100,
		},
		OptionB: harm.Option{
			Label:            "Option B - Switch",
			Occupants:        harm.OptionSide{Profile: harm.DefaultProfile()},
			Pedestrians:      harm.OptionSide{Count: 1, Profile: p},
			Severity:         harm.SeverityFatal,
			CertaintyPercent: 100,
		},
	}
}
