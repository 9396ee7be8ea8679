package scorer

import (
	"fmt"
	"io"
	"strings"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// WriteText renders the report for a terminal or chat reply.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	res := r.Result

	fmt.Fprintf(&sb, "## Utilitarian analysis (%s)\n\n", r.Connectedness)
	for _, o := range []harm.OptionHarmResult{res.OptionA, res.OptionB} {
		fmt.Fprintf(&sb, "- **%s**: %d people, %.1f life-years lost, expected harm %.2f (range %.2f to %.2f), utility %.1f\n",
			o.Label, o.TotalPeople, o.LifeYearsLost, o.ExpectedHarm,
			o.UncertaintyBand.Lower, o.UncertaintyBand.Upper, o.UtilityScore)
	}
	fmt.Fprintf(&sb, "\nRecommendation: **%s** (confidence %.1f%%, difference %.2f, engine %s)\n",
		recommendationLabel(res), res.ConfidencePercent, res.Difference, r.Engine)

	fmt.Fprintf(&sb, "\n## Deontological analysis\n\n")
	writeConcerns(&sb, res.OptionA.Label, r.Deontological.OptionAConcerns)
	writeConcerns(&sb, res.OptionB.Label, r.Deontological.OptionBConcerns)
	fmt.Fprintf(&sb, "\nRecommendation: **%s**. %s\n", r.Deontological.Recommendation, r.Deontological.Reasoning)

	fmt.Fprintf(&sb, "\n## Virtue ethics\n\n")
	for _, c := range r.Virtue.Considerations {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	fmt.Fprintf(&sb, "\n%s\n", r.Virtue.Reasoning)

	for _, warn := range r.Warnings {
		fmt.Fprintf(&sb, "\nWarning: %s\n", warn)
	}

	if r.Trace != nil {
		fmt.Fprintf(&sb, "\n## Calculation trace\n")
		writeSideTrace(&sb, res.OptionA.Label+" occupants", r.Trace.OptionA.Occupants)
		writeSideTrace(&sb, res.OptionA.Label+" pedestrians", r.Trace.OptionA.Pedestrians)
		writeSideTrace(&sb, res.OptionB.Label+" occupants", r.Trace.OptionB.Occupants)
		writeSideTrace(&sb, res.OptionB.Label+" pedestrians", r.Trace.OptionB.Pedestrians)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func recommendationLabel(res harm.ComparisonResult) string {
	switch res.Recommendation {
	case harm.RecommendOptionA:
		return res.OptionA.Label
	case harm.RecommendOptionB:
		return res.OptionB.Label
	}
	return "neutral"
}

func writeConcerns(sb *strings.Builder, label string, concerns []string) {
	if len(concerns) == 0 {
		fmt.Fprintf(sb, "- %s: no concerns\n", label)
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, strings.Join(concerns, "; "))
}

func writeSideTrace(sb *strings.Builder, title string, t *harm.SideTrace) {
	if t == nil {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	for _, s := range t.Steps {
		fmt.Fprintf(sb, "- %s: %s = %s → %.4f\n", s.Step, s.Formula, s.Calculation, s.Value)
	}
	fmt.Fprintf(sb, "- Total: %d × %.4f = %.4f\n", t.Count, t.PerPerson, t.LifeYearsLost)
}

// WriteWeightedText renders a personal-weights comparison.
func WriteWeightedText(w io.Writer, res harm.WeightedResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Personal ethics analysis\n\n")
	for _, o := range []harm.WeightedOption{res.OptionA, res.OptionB} {
		fmt.Fprintf(&sb, "- **%s**: %d people, weighted harm %.2f, share %.1f%%\n", o.Label, o.TotalPeople, o.Value, o.Score)
	}
	label := "neutral"
	switch res.Recommendation {
	case harm.RecommendOptionA:
		label = res.OptionA.Label
	case harm.RecommendOptionB:
		label = res.OptionB.Label
	}
	fmt.Fprintf(&sb, "\nRecommendation: **%s**\n", label)

	ws := res.Weights
	fmt.Fprintf(&sb, "\nWeights: age %d, health %d, occupation %d, criminal %d, legal fault %d, pregnancy %d, network %d, species %d, number of people %d, certainty %d\n",
		ws.Age, ws.Health, ws.Occupation, ws.Criminal, ws.LegalFault, ws.Pregnancy, ws.Network, ws.Species, ws.NumberOfPeople, ws.Certainty)

	_, err := io.WriteString(w, sb.String())
	return err
}
