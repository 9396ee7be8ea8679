package batch

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

func outcome(id string, level int, rec harm.Recommendation, a, b, diff float64) Outcome {
	return Outcome{ScenarioID: id, Level: harm.Levels[level].Name, Recommendation: rec, HarmA: a, HarmB: b, Difference: diff}
}

// sampleOutcomes covers one stable scenario, one flip that ends neutral and
// one neutral at every level.
func sampleOutcomes() []Outcome {
	return []Outcome{
		outcome("s1", 0, harm.RecommendOptionA, 5, 50, 45),
		outcome("s1", 1, harm.RecommendOptionA, 5, 50, 45),
		outcome("s2", 0, harm.RecommendOptionA, 20, 40, 20),
		outcome("s2", 1, harm.RecommendOptionB, 45, 30, 15),
		outcome("s2", 2, harm.RecommendNeutral, 30, 30.05, 0.05),
		outcome("s3", 0, harm.RecommendNeutral, 100, 100, 0),
		outcome("s3", 1, harm.RecommendNeutral, 100, 100, 0),
	}
}

func TestSummarizeOutcomes(t *testing.T) {
	s := SummarizeOutcomes(sampleOutcomes(), 2)

	assert.Equal(t, 3, s.Scenarios)
	assert.Equal(t, 7, s.DataPoints)
	assert.Equal(t, 1, s.Stable)
	assert.Equal(t, 2, s.Changing)
	assert.Equal(t, 1, s.Flips)
	assert.Equal(t, 2, s.WithNeutral)
	assert.Equal(t, map[int]int{1: 1, 2: 1}, s.NeutralAtLevels)

	assert.Equal(t, 5.0, s.Harm.Min)
	assert.Equal(t, 100.0, s.Harm.Max)
	assert.InDelta(t, 705.05/14, s.Harm.Mean, 1e-9)

	counts := func(b []Bucket) []int {
		out := make([]int, len(b))
		for i := range b {
			out[i] = b[i].Count
		}
		return out
	}
	assert.Equal(t, []int{2, 1, 7, 0, 4}, counts(s.HarmDistribution))
	assert.Equal(t, []int{3, 1, 3}, counts(s.Closeness))

	require.Len(t, s.ByLevel, len(harm.Levels))
	assert.Equal(t, LevelCounts{Level: harm.Levels[0].Name, OptionA: 2, Neutral: 1}, s.ByLevel[0])
	assert.Equal(t, LevelCounts{Level: harm.Levels[1].Name, OptionA: 1, OptionB: 1, Neutral: 1}, s.ByLevel[1])
	assert.Equal(t, LevelCounts{Level: harm.Levels[2].Name, Neutral: 1}, s.ByLevel[2])
	assert.Equal(t, LevelCounts{Level: harm.Levels[4].Name}, s.ByLevel[4])

	require.Len(t, s.FlippedScenarios, 1)
	flip := s.FlippedScenarios[0]
	assert.Equal(t, "s2", flip.ScenarioID)
	assert.Equal(t, []harm.Recommendation{harm.RecommendOptionA, harm.RecommendOptionB, harm.RecommendNeutral}, flip.Recommendations)
	assert.Equal(t, [2]float64{20, 45}, flip.HarmARange)
	assert.Equal(t, [2]float64{30, 40}, flip.HarmBRange)
	assert.InDelta(t, 35, flip.TotalChange, 1e-9)

	require.Len(t, s.MostInteresting, 2)
	assert.Equal(t, "s2", s.MostInteresting[0].ScenarioID)
	assert.Equal(t, "s1", s.MostInteresting[1].ScenarioID)
}

func TestSummarizeEmpty(t *testing.T) {
	s := SummarizeOutcomes(nil, 10)
	assert.Zero(t, s.Scenarios)
	assert.Equal(t, HarmStats{}, s.Harm)
	assert.Empty(t, s.MostInteresting)
	for _, b := range s.HarmDistribution {
		assert.Zero(t, b.Count)
	}
}

func TestHarmStatsMedian(t *testing.T) {
	h := harmStats([]float64{9, 1, 4, 7, 3})
	assert.Equal(t, HarmStats{Min: 1, Max: 9, Mean: 4.8, Median: 4}, h)
}

func TestBucketizeBoundaries(t *testing.T) {
	b := bucketize([]float64{4.999, 5, 19.999, 20}, []float64{5, 20}, []string{"a", "b", "c"})
	assert.Equal(t, []Bucket{{"a", 1}, {"b", 2}, {"c", 1}}, b)
}

func TestSummarizeMatchesOutcomes(t *testing.T) {
	evals, err := Run(context.Background(), Generate(30, 3), harm.Levels, Options{})
	require.NoError(t, err)

	s := Summarize(evals, 5)
	assert.Equal(t, 30, s.Scenarios)
	assert.Equal(t, 30*len(harm.Levels), s.DataPoints)
	assert.Equal(t, s.Scenarios, s.Stable+s.Changing)
	assert.LessOrEqual(t, len(s.MostInteresting), 5)

	perLevel := 0
	for _, lc := range s.ByLevel {
		assert.Equal(t, 30, lc.OptionA+lc.OptionB+lc.Neutral)
		perLevel += lc.OptionA + lc.OptionB + lc.Neutral
	}
	assert.Equal(t, s.DataPoints, perLevel)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, SummarizeOutcomes(sampleOutcomes(), 10)))
	out := buf.String()

	assert.Contains(t, out, "# Scenario Analysis Report")
	assert.Contains(t, out, "- Total scenarios: 3")
	assert.Contains(t, out, "| Stable (same recommendation at every level) | 1 | 33.3% |")
	assert.Contains(t, out, "| Decision flips | 1 | 33.3% |")
	assert.Contains(t, out, "1. s2: optionA → optionB → neutral")
	assert.Contains(t, out, "- Neutral at 2 level(s): 1 scenarios")
	assert.Contains(t, out, "| 5.00 | 100.00 |")
	assert.Contains(t, out, "| Very High (100+) | 4 | 28.6% |")
	assert.Contains(t, out, "**s2**: flip YES, total harm change 35.00")
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	evals, err := Run(ctx, Generate(4, 21), harm.Levels, Options{})
	require.NoError(t, err)

	info, err := store.SaveRun(ctx, 21, Options{}, evals)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 4, info.Count)
	assert.Equal(t, string(harm.TieBreakHarmDifference), info.TieBreak)

	got, err := store.LoadRun(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, info.Seed, got.Seed)
	assert.True(t, info.CreatedAt.Equal(got.CreatedAt))

	records, err := store.LoadRecords(ctx, info.ID)
	require.NoError(t, err)
	rows := Rows(evals)
	require.Len(t, records, len(rows))
	for i, r := range rows {
		assert.Equal(t, r.Record(), records[i])
	}

	outcomes, err := store.LoadOutcomes(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, Outcomes(evals), outcomes)
	assert.Equal(t, Summarize(evals, 10), SummarizeOutcomes(outcomes, 10))

	second, err := store.SaveRun(ctx, 22, Options{TieBreak: harm.TieBreakUtilityBand}, evals[:1])
	require.NoError(t, err)
	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	require.NoError(t, store.DeleteRun(ctx, info.ID))
	_, err = store.LoadRun(ctx, info.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = store.LoadRecords(ctx, info.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, store.DeleteRun(ctx, info.ID), ErrRunNotFound)
}
