package scorer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/nn"
	"github.com/nthompson1415/AVECapstone/internal/presets"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixedScorer struct {
	a, b float64
	err  error
}

func (f fixedScorer) Name() string { return "fixed" }

func (f fixedScorer) ScoreOption(_ context.Context, _ harm.Option, _ harm.FeatureFlags, key harm.OptionKey) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if key == harm.KeyOptionB {
		return f.b, nil
	}
	return f.a, nil
}

// stuckScorer blocks well past any test timeout and ignores its context.
type stuckScorer struct{}

func (stuckScorer) Name() string { return "stuck" }

func (stuckScorer) ScoreOption(context.Context, harm.Option, harm.FeatureFlags, harm.OptionKey) (float64, error) {
	time.Sleep(2 * time.Second)
	return 1, nil
}

func trolley(t *testing.T) harm.Scenario {
	t.Helper()
	p, err := presets.Get("classicTrolley")
	require.NoError(t, err)
	return p.Scenario
}

func TestDeterministicEngine(t *testing.T) {
	e := NewEngine(nil, EngineConfig{}, quiet)
	assert.Equal(t, EngineDeterministic, e.Name())
	assert.Equal(t, harm.TieBreakUtilityBand, e.TieBreak())

	r, err := e.Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
	require.NoError(t, err)

	assert.Equal(t, EngineDeterministic, r.Engine)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, harm.RecommendOptionB, r.Result.Recommendation)
	assert.Equal(t, "None (Demographic-Blind)", r.Connectedness)
	assert.Equal(t, harm.RecommendNeutral, r.Deontological.Recommendation)
	assert.Len(t, r.Virtue.Considerations, 5)
	assert.Nil(t, r.Trace)
}

func TestAnalyzeTraced(t *testing.T) {
	e := NewEngine(Deterministic{}, EngineConfig{}, quiet)
	r, err := e.AnalyzeTraced(context.Background(), trolley(t), harm.FeatureFlags{})
	require.NoError(t, err)
	require.NotNil(t, r.Trace)
	require.NotNil(t, r.Trace.OptionA.Pedestrians)
	assert.Nil(t, r.Trace.OptionA.Occupants)
	assert.Equal(t, 225.0, r.Trace.OptionA.Pedestrians.LifeYearsLost)
}

func TestEngineRejectsEmptyScenario(t *testing.T) {
	e := NewEngine(fixedScorer{a: 1, b: 2}, EngineConfig{}, quiet)
	_, err := e.Analyze(context.Background(), harm.Scenario{}, harm.FeatureFlags{})
	assert.ErrorIs(t, err, harm.ErrEmptyScenario)
}

func TestAlternateScorerReplacesExpectedHarm(t *testing.T) {
	// The learned figures invert the deterministic ranking.
	e := NewEngine(fixedScorer{a: 10, b: 90}, EngineConfig{}, quiet)
	r, err := e.Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
	require.NoError(t, err)

	assert.Equal(t, "fixed", r.Engine)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 10.0, r.Result.OptionA.ExpectedHarm)
	assert.Equal(t, 225.0, r.Result.OptionA.LifeYearsLost)
	assert.Equal(t, harm.RecommendOptionA, r.Result.Recommendation)
}

func TestAlternateScorerFailureFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		scorer Scorer
		cfg    EngineConfig
	}{
		{"error", fixedScorer{err: ErrModelUnavailable}, EngineConfig{}},
		{"timeout", stuckScorer{}, EngineConfig{Timeout: 20 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.scorer, tt.cfg, quiet)
			start := time.Now()
			r, err := e.Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
			require.NoError(t, err)
			assert.Less(t, time.Since(start), time.Second)

			assert.Equal(t, EngineDeterministic, r.Engine)
			assert.Equal(t, []string{FallbackWarning}, r.Warnings)
			assert.Equal(t, 225.0, r.Result.OptionA.ExpectedHarm)
			assert.Equal(t, harm.RecommendOptionB, r.Result.Recommendation)
		})
	}
}

func TestHarmDifferenceEngine(t *testing.T) {
	e := NewEngine(nil, EngineConfig{TieBreak: harm.TieBreakHarmDifference}, quiet)
	s := presets.Simple()
	s.OptionB.Pedestrians.Profile.Age = 36

	r, err := e.Analyze(context.Background(), s, harm.FeatureFlags{})
	require.NoError(t, err)
	assert.Equal(t, harm.TieBreakHarmDifference, r.Result.TieBreak)
	assert.Equal(t, harm.RecommendOptionB, r.Result.Recommendation)
}

func identityModel(t *testing.T) *nn.HarmModel {
	t.Helper()
	enc := nn.Encoder{Numeric: nn.NumericSpec{
		Features: []string{"life_years_lost"}, Mean: []float64{0}, Scale: []float64{2},
	}}
	m, err := nn.NewHarmModelFromLayers(enc, []nn.Layer{
		{W: mat.NewDense(1, 1, []float64{1}), B: mat.NewVecDense(1, nil)},
	})
	require.NoError(t, err)
	return m
}

func TestLearnedScorer(t *testing.T) {
	var loads atomic.Int32
	l := NewLearned(func(context.Context) (*nn.HarmModel, error) {
		loads.Add(1)
		return identityModel(t), nil
	})

	e := NewEngine(l, EngineConfig{}, quiet)
	assert.Equal(t, EngineLearned, e.Name())

	r, err := e.Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
	require.NoError(t, err)
	assert.Equal(t, EngineLearned, r.Engine)
	assert.Equal(t, 112.5, r.Result.OptionA.ExpectedHarm)
	assert.Equal(t, 22.5, r.Result.OptionB.ExpectedHarm)

	_, err = e.Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestLearnedLoadIsSharedAndRetried(t *testing.T) {
	var loads atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	release := make(chan struct{})

	l := NewLearned(func(context.Context) (*nn.HarmModel, error) {
		loads.Add(1)
		if fail.Load() {
			return nil, errors.New("connection refused")
		}
		<-release
		return identityModel(t), nil
	})

	_, err := l.Model(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)

	fail.Store(false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Model(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), loads.Load())
}

func TestLearnedRejectsMalformedOutput(t *testing.T) {
	enc := nn.Encoder{Numeric: nn.NumericSpec{Features: []string{"certainty"}, Mean: []float64{0}, Scale: []float64{1}}}
	negative, err := nn.NewHarmModelFromLayers(enc, []nn.Layer{
		{W: mat.NewDense(1, 1, []float64{-1}), B: mat.NewVecDense(1, nil)},
	})
	require.NoError(t, err)
	huge, err := nn.NewHarmModelFromLayers(enc, []nn.Layer{
		{W: mat.NewDense(1, 1, []float64{math.Inf(1)}), B: mat.NewVecDense(1, nil)},
	})
	require.NoError(t, err)

	for name, m := range map[string]*nn.HarmModel{"negative": negative, "infinite": huge} {
		t.Run(name, func(t *testing.T) {
			l := NewLearned(func(context.Context) (*nn.HarmModel, error) { return m, nil })
			_, err := l.ScoreOption(context.Background(), trolley(t).OptionA, harm.FeatureFlags{}, harm.KeyOptionA)
			assert.ErrorIs(t, err, ErrMalformedOutput)

			r, err := NewEngine(l, EngineConfig{}, quiet).Analyze(context.Background(), trolley(t), harm.FeatureFlags{})
			require.NoError(t, err)
			assert.Equal(t, []string{FallbackWarning}, r.Warnings)
		})
	}
}
