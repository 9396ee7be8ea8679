package batch

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

var reportFuncs = template.FuncMap{
	"pct": func(n, total int) string {
		if total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
	},
	"f2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"add": func(a, b int) int { return a + b },
	"yesno": func(b bool) string {
		if b {
			return "YES"
		}
		return "NO"
	},
	"recs": func(r []harm.Recommendation) string {
		s := make([]string, len(r))
		for i, v := range r {
			s[i] = string(v)
		}
		return strings.Join(s, " → ")
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(`# Scenario Analysis Report

- Total scenarios: {{.Scenarios}}
- Total data points: {{.DataPoints}}
- Connectedness levels: {{len .ByLevel}}

## Decision Stability

| | Scenarios | Share |
|---|---|---|
| Stable (same recommendation at every level) | {{.Stable}} | {{pct .Stable .Scenarios}} |
| Changing | {{.Changing}} | {{pct .Changing .Scenarios}} |
| Decision flips | {{.Flips}} | {{pct .Flips .Scenarios}} |
{{with .FlippedScenarios}}
### Scenarios with Decision Flips
{{range $i, $c := .}}
{{add $i 1}}. {{$c.ScenarioID}}: {{recs $c.Recommendations}}{{end}}
{{end}}
## Neutral Decisions

Scenarios with a neutral decision: {{.WithNeutral}} ({{pct .WithNeutral .Scenarios}})
{{range .NeutralRows}}
- Neutral at {{.Levels}} level(s): {{.Count}} scenarios{{end}}

## Harm Values

| Minimum | Maximum | Average | Median |
|---|---|---|---|
| {{f2 .Harm.Min}} | {{f2 .Harm.Max}} | {{f2 .Harm.Mean}} | {{f2 .Harm.Median}} |

| Range | Options | Share |
|---|---|---|
{{- $total := .HarmTotal}}{{range .HarmDistribution}}
| {{.Label}} | {{.Count}} | {{pct .Count $total}} |{{end}}

## Decision Closeness

| Harm difference | Comparisons | Share |
|---|---|---|
{{- $n := .DataPoints}}{{range .Closeness}}
| {{.Label}} | {{.Count}} | {{pct .Count $n}} |{{end}}

## Recommendations by Connectedness Level

| Level | Option 1 | Option 2 | Neutral |
|---|---|---|---|
{{- range .ByLevel}}
| {{.Level}} | {{.OptionA}} | {{.OptionB}} | {{.Neutral}} |{{end}}

## Most Interesting Scenarios
{{range $i, $c := .MostInteresting}}
{{add $i 1}}. **{{$c.ScenarioID}}**: flip {{yesno $c.Flip}}, total harm change {{f2 $c.TotalChange}}, option 1 {{f2 (index $c.HarmARange 0)}} - {{f2 (index $c.HarmARange 1)}}, option 2 {{f2 (index $c.HarmBRange 0)}} - {{f2 (index $c.HarmBRange 1)}}{{end}}
`))

type neutralRow struct {
	Levels int
	Count  int
}

type reportView struct {
	Summary
	NeutralRows []neutralRow
	HarmTotal   int
}

// WriteReport renders a summary as markdown.
func WriteReport(w io.Writer, s Summary) error {
	v := reportView{Summary: s}
	for levels, count := range s.NeutralAtLevels {
		v.NeutralRows = append(v.NeutralRows, neutralRow{Levels: levels, Count: count})
	}
	sort.Slice(v.NeutralRows, func(i, j int) bool { return v.NeutralRows[i].Levels > v.NeutralRows[j].Levels })
	for _, b := range s.HarmDistribution {
		v.HarmTotal += b.Count
	}

	if err := reportTmpl.Execute(w, v); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
