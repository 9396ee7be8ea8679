package harm

const (
	concernActiveHarm = "Involves actively harming pedestrians"
	concernDutyFailed = "Fails duty to protect vehicle occupants"

	reasoningActiveHarm = "Deontological ethics generally prohibits actively harming innocent people."
	reasoningSimilar    = "Both options involve similar moral concerns from a deontological perspective."
)

// DeontologicalFinding is the duty-based reading of a scenario.
type DeontologicalFinding struct {
	OptionAConcerns []string       `json:"optionAConcerns"`
	OptionBConcerns []string       `json:"optionBConcerns"`
	Recommendation  Recommendation `json:"recommendation"`
	Reasoning       string         `json:"reasoning"`
}

// Deontological flags active harm to pedestrians and failures of the duty
// to protect occupants. When exactly one option actively harms pedestrians
// it recommends the other.
func Deontological(s Scenario) DeontologicalFinding {
	concerns := func(o Option) (bool, []string) {
		list := []string{}
		active := o.Pedestrians.People() > 0
		if active {
			list = append(list, concernActiveHarm)
		}
		if o.Occupants.People() > 0 && o.Severity != SeverityNone {
			list = append(list, concernDutyFailed)
		}
		return active, list
	}

	activeA, concernsA := concerns(s.OptionA)
	activeB, concernsB := concerns(s.OptionB)

	f := DeontologicalFinding{OptionAConcerns: concernsA, OptionBConcerns: concernsB}
	switch {
	case activeA && !activeB:
		f.Recommendation = RecommendOptionB
		f.Reasoning = reasoningActiveHarm
	case activeB && !activeA:
		f.Recommendation = RecommendOptionA
		f.Reasoning = reasoningActiveHarm
	default:
		f.Recommendation = RecommendNeutral
		f.Reasoning = reasoningSimilar
	}
	return f
}

// VirtueFinding is the character-based commentary. It does not depend on
// the scenario.
type VirtueFinding struct {
	Considerations []string `json:"considerations"`
	Recommendation string   `json:"recommendation"`
	Reasoning      string   `json:"reasoning"`
}

// VirtueEthics returns the fixed set of reflective prompts.
func VirtueEthics() VirtueFinding {
	return VirtueFinding{
		Considerations: []string{
			"Courage: Would a courageous person minimize harm?",
			"Justice: Does this treat all with equal dignity?",
			"Wisdom: Does this reflect practical wisdom?",
			"Compassion: Does this show concern for all?",
			"Integrity: Can one live with this choice?",
		},
		Recommendation: "Virtue ethics emphasizes that the right action depends on what a person of good character would do.",
		Reasoning:      "A virtuous decision-maker would prioritize human dignity, wisdom, and compassion.",
	}
}
