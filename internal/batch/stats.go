package batch

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// Outcome is the comparison of one scenario at one level, reduced to what
// the statistics need.
type Outcome struct {
	ScenarioID     string              `json:"scenarioId"`
	Level          string              `json:"level"`
	Recommendation harm.Recommendation `json:"recommendation"`
	HarmA          float64             `json:"harmA"`
	HarmB          float64             `json:"harmB"`
	Difference     float64             `json:"difference"`
}

// Outcomes flattens evaluations, keeping scenario then level order.
func Outcomes(evals []Evaluation) []Outcome {
	out := make([]Outcome, 0, len(evals)*len(harm.Levels))
	for _, ev := range evals {
		for _, lr := range ev.Levels {
			out = append(out, Outcome{
				ScenarioID:     ev.Scenario.ID,
				Level:          lr.Level.Name,
				Recommendation: lr.Result.Recommendation,
				HarmA:          lr.Result.OptionA.ExpectedHarm,
				HarmB:          lr.Result.OptionB.ExpectedHarm,
				Difference:     lr.Result.Difference,
			})
		}
	}
	return out
}

// HarmStats describes the spread of expected harm over every option.
type HarmStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Bucket is a labelled count.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LevelCounts tallies recommendations at one level.
type LevelCounts struct {
	Level   string `json:"level"`
	OptionA int    `json:"option1"`
	OptionB int    `json:"option2"`
	Neutral int    `json:"neutral"`
}

// ScenarioChange describes how much one scenario moved across levels.
type ScenarioChange struct {
	ScenarioID      string                `json:"scenarioId"`
	Flip            bool                  `json:"flip"`
	Recommendations []harm.Recommendation `json:"recommendations"`
	HarmARange      [2]float64            `json:"harmARange"`
	HarmBRange      [2]float64            `json:"harmBRange"`
	TotalChange     float64               `json:"totalChange"`
}

// Summary is the cross-scenario analysis of a batch.
type Summary struct {
	Scenarios        int              `json:"totalScenarios"`
	DataPoints       int              `json:"totalDataPoints"`
	Stable           int              `json:"stableDecisions"`
	Changing         int              `json:"changingDecisions"`
	Flips            int              `json:"decisionFlips"`
	WithNeutral      int              `json:"scenariosWithNeutral"`
	NeutralAtLevels  map[int]int      `json:"neutralAtLevels"`
	Harm             HarmStats        `json:"harm"`
	HarmDistribution []Bucket         `json:"harmDistribution"`
	Closeness        []Bucket         `json:"closeness"`
	ByLevel          []LevelCounts    `json:"byLevel"`
	FlippedScenarios []ScenarioChange `json:"flippedScenarios"`
	MostInteresting  []ScenarioChange `json:"mostInteresting"`
}

// Summarize analyses a run. topN bounds the flipped and most-interesting
// lists.
func Summarize(evals []Evaluation, topN int) Summary {
	return SummarizeOutcomes(Outcomes(evals), topN)
}

// SummarizeOutcomes analyses outcomes grouped by scenario in first-seen
// order.
func SummarizeOutcomes(outcomes []Outcome, topN int) Summary {
	var order []string
	groups := map[string][]Outcome{}
	for _, o := range outcomes {
		if _, ok := groups[o.ScenarioID]; !ok {
			order = append(order, o.ScenarioID)
		}
		groups[o.ScenarioID] = append(groups[o.ScenarioID], o)
	}

	s := Summary{
		Scenarios:       len(order),
		DataPoints:      len(outcomes),
		NeutralAtLevels: map[int]int{},
	}

	changes := make([]ScenarioChange, 0, len(order))
	for _, id := range order {
		group := groups[id]
		recs := uniqueRecommendations(group)
		// Stable means one non-neutral answer at every level.
		if len(recs) == 1 && recs[0] != harm.RecommendNeutral {
			s.Stable++
		} else {
			s.Changing++
		}

		if neutral := countNeutral(group); neutral > 0 {
			s.WithNeutral++
			s.NeutralAtLevels[neutral]++
		}

		ch := changeOf(id, group, recs)
		if ch.Flip {
			s.Flips++
			s.FlippedScenarios = append(s.FlippedScenarios, ch)
		}
		changes = append(changes, ch)
	}

	// Flips first, then by how far harm moved.
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Flip != changes[j].Flip {
			return changes[i].Flip
		}
		return changes[i].TotalChange > changes[j].TotalChange
	})
	s.MostInteresting = truncate(changes, topN)
	s.FlippedScenarios = truncate(s.FlippedScenarios, topN)

	harms := make([]float64, 0, 2*len(outcomes))
	diffs := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		harms = append(harms, o.HarmA, o.HarmB)
		diffs = append(diffs, o.Difference)
	}
	s.Harm = harmStats(harms)
	s.HarmDistribution = bucketize(harms, []float64{10, 30, 60, 100},
		[]string{"Very Low (0-10)", "Low (10-30)", "Medium (30-60)", "High (60-100)", "Very High (100+)"})
	s.Closeness = bucketize(diffs, []float64{5, 20},
		[]string{"Very Close (< 5)", "Moderate (5-20)", "Clear (> 20)"})
	s.ByLevel = byLevel(outcomes)
	return s
}

func uniqueRecommendations(group []Outcome) []harm.Recommendation {
	var recs []harm.Recommendation
	for _, o := range group {
		if !slices.Contains(recs, o.Recommendation) {
			recs = append(recs, o.Recommendation)
		}
	}
	return recs
}

func countNeutral(group []Outcome) int {
	n := 0
	for _, o := range group {
		if o.Recommendation == harm.RecommendNeutral {
			n++
		}
	}
	return n
}

func changeOf(id string, group []Outcome, recs []harm.Recommendation) ScenarioChange {
	a := make([]float64, len(group))
	b := make([]float64, len(group))
	for i, o := range group {
		a[i], b[i] = o.HarmA, o.HarmB
	}
	ch := ScenarioChange{
		ScenarioID:      id,
		Flip:            len(recs) > 1,
		Recommendations: make([]harm.Recommendation, len(group)),
	}
	for i, o := range group {
		ch.Recommendations[i] = o.Recommendation
	}
	if len(group) > 0 {
		ch.HarmARange = [2]float64{floats.Min(a), floats.Max(a)}
		ch.HarmBRange = [2]float64{floats.Min(b), floats.Max(b)}
		ch.TotalChange = (ch.HarmARange[1] - ch.HarmARange[0]) + (ch.HarmBRange[1] - ch.HarmBRange[0])
	}
	return ch
}

func harmStats(values []float64) HarmStats {
	if len(values) == 0 {
		return HarmStats{}
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	return HarmStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// bucketize counts values below each upper bound in turn; values at or past
// the last bound land in the final bucket.
func bucketize(values, bounds []float64, labels []string) []Bucket {
	out := make([]Bucket, len(labels))
	for i, l := range labels {
		out[i].Label = l
	}
	for _, v := range values {
		i := sort.Search(len(bounds), func(i int) bool { return v < bounds[i] })
		out[i].Count++
	}
	return out
}

func byLevel(outcomes []Outcome) []LevelCounts {
	out := make([]LevelCounts, len(harm.Levels))
	index := map[string]int{}
	for i, l := range harm.Levels {
		out[i].Level = l.Name
		index[l.Name] = i
	}
	for _, o := range outcomes {
		i, ok := index[o.Level]
		if !ok {
			continue
		}
		switch o.Recommendation {
		case harm.RecommendOptionA:
			out[i].OptionA++
		case harm.RecommendOptionB:
			out[i].OptionB++
		default:
			out[i].Neutral++
		}
	}
	return out
}

func truncate(c []ScenarioChange, n int) []ScenarioChange {
	if n >= 0 && len(c) > n {
		return c[:n]
	}
	return c
}
