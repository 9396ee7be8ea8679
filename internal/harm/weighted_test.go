package harm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightedOption(label string, count, age int, certainty float64) Option {
	return Option{
		Label:            label,
		Pedestrians:      OptionSide{Count: count, Profile: profileAged(age)},
		Severity:         SeverityFatal,
		CertaintyPercent: certainty,
	}
}

func TestAnalyzeWeightedDefaults(t *testing.T) {
	s := Scenario{
		OptionA: weightedOption("Option A", 1, 35, 90),
		OptionB: weightedOption("Option B", 5, 70, 90),
	}
	res, err := AnalyzeWeighted(s, DefaultWeights())
	require.NoError(t, err)

	// age weight 5, numberOfPeople 8, certainty 7
	wantA := 43 * (1 + (43.0/78-0.5)*0.5) * (1 - 0.1*0.7)
	wantB := 8 * (1 + (8.0/78-0.5)*0.5) * math.Pow(5, 1.3) * (1 - 0.1*0.7)
	assert.InDelta(t, wantA, res.OptionA.Value, 1e-9)
	assert.InDelta(t, wantB, res.OptionB.Value, 1e-9)
	assert.InDelta(t, 100, res.OptionA.Score+res.OptionB.Score, 1e-9)
	assert.InDelta(t, wantA/(wantA+wantB)*100, res.OptionA.Score, 1e-9)
	assert.Equal(t, RecommendOptionA, res.Recommendation)
	assert.Equal(t, 5, res.OptionB.TotalPeople)
	assert.Equal(t, DefaultWeights(), res.Weights)
}

func TestWeightedFactorScaling(t *testing.T) {
	p := profileAged(40)
	base := WeightedPersonValue(p, SeverityFatal, DefaultWeights())

	p.Occupation = OccupationLifesaving
	tests := []struct {
		importance int
		want       float64
	}{
		{1, 1},
		{2, 1},
		{3, 1 + 0.4*0.3},
		{10, 1.4},
	}
	for _, tt := range tests {
		w := DefaultWeights()
		w.Occupation = tt.importance
		got := WeightedPersonValue(p, SeverityFatal, w)
		assert.InDelta(t, base*tt.want, got, 1e-9, "importance %d", tt.importance)
	}
}

func TestWeightedPregnancyAndSpecies(t *testing.T) {
	w := DefaultWeights()
	w.Pregnancy = 10
	w.Species = 10
	p := profileAged(30)
	base := WeightedPersonValue(p, SeverityFatal, w)

	p.Pregnant = true
	assert.InDelta(t, base*1.8, WeightedPersonValue(p, SeverityFatal, w), 1e-9)

	p.Pregnant = false
	p.Species = SpeciesLivestock
	assert.InDelta(t, base*0.1, WeightedPersonValue(p, SeverityFatal, w), 1e-9)

	p.Species = "dragon"
	assert.InDelta(t, base, WeightedPersonValue(p, SeverityFatal, w), 1e-9)
}

func TestWeightedSeverityAndAge(t *testing.T) {
	w := DefaultWeights()
	p := profileAged(40)
	fatal := WeightedPersonValue(p, SeverityFatal, w)

	assert.Zero(t, WeightedPersonValue(p, SeverityNone, w))
	assert.InDelta(t, fatal*0.5, WeightedPersonValue(p, SeveritySerious, w), 1e-9)
	assert.InDelta(t, fatal*0.2, WeightedPersonValue(p, SeverityMinor, w), 1e-9)
	assert.InDelta(t, fatal*0.2, WeightedPersonValue(p, "unknown", w), 1e-9)

	assert.Zero(t, WeightedPersonValue(profileAged(78), SeverityFatal, w))
	assert.Zero(t, WeightedPersonValue(profileAged(90), SeverityFatal, w))
}

func TestWeightedOptionCombinesSides(t *testing.T) {
	w := DefaultWeights()
	split := Option{
		Occupants:        OptionSide{Count: 1, Profile: profileAged(35)},
		Pedestrians:      OptionSide{Count: 1, Profile: profileAged(35)},
		Severity:         SeverityFatal,
		CertaintyPercent: 100,
	}
	single := weightedOption("", 2, 35, 100)
	assert.InDelta(t, WeightedOptionValue(single, w), WeightedOptionValue(split, w), 1e-9)

	assert.Zero(t, WeightedOptionValue(Option{Severity: SeverityFatal}, w))
}

func TestWeightedCertainty(t *testing.T) {
	w := DefaultWeights()
	w.Certainty = 10
	o := weightedOption("", 1, 30, 0)
	assert.Zero(t, WeightedOptionValue(o, w))

	w.Certainty = 1
	o.CertaintyPercent = 50
	full := weightedOption("", 1, 30, 100)
	assert.InDelta(t, WeightedOptionValue(full, w)*0.95, WeightedOptionValue(o, w), 1e-9)
}

func TestAnalyzeWeightedNeutral(t *testing.T) {
	s := Scenario{
		OptionA: weightedOption("A", 2, 40, 100),
		OptionB: weightedOption("B", 2, 40, 100),
	}
	res, err := AnalyzeWeighted(s, DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, RecommendNeutral, res.Recommendation)
	assert.InDelta(t, 50, res.OptionA.Score, 1e-9)

	s.OptionA.Severity = SeverityNone
	s.OptionB.Severity = SeverityNone
	res, err = AnalyzeWeighted(s, DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, RecommendNeutral, res.Recommendation)
	assert.Equal(t, NeutralConfidence, res.OptionA.Score)
	assert.Equal(t, NeutralConfidence, res.OptionB.Score)
}

func TestAnalyzeWeightedRejects(t *testing.T) {
	_, err := AnalyzeWeighted(Scenario{}, DefaultWeights())
	assert.ErrorIs(t, err, ErrEmptyScenario)

	w := DefaultWeights()
	w.Age = 0
	w.Certainty = 11
	s := Scenario{OptionA: weightedOption("A", 1, 30, 100)}
	_, err = AnalyzeWeighted(s, w)
	require.ErrorIs(t, err, ErrInvalidWeights)
	assert.Contains(t, err.Error(), "age is 0")
	assert.Contains(t, err.Error(), "certainty is 11")

	assert.NoError(t, DefaultWeights().Validate())
}
