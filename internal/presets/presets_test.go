package presets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

func TestEveryPresetIsAValidScenario(t *testing.T) {
	for _, p := range All() {
		for _, l := range harm.Levels {
			_, err := harm.AnalyzeScenario(p.Scenario, l.Flags)
			assert.NoError(t, err, "%s at %s", p.Name, l.Name)
		}
	}
	assert.NoError(t, Default().Validate())
	assert.NoError(t, Simple().Validate())
}

func TestGet(t *testing.T) {
	p, err := Get("classicTrolley")
	require.NoError(t, err)
	assert.Equal(t, "Classic Trolley", p.Name)

	p, err = Get("Pet vs Person")
	require.NoError(t, err)
	assert.Equal(t, harm.SpeciesPetDog, p.Scenario.OptionA.Pedestrians.Profile.Species)

	_, err = Get("lifeboat")
	assert.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Name = "changed"
	assert.Equal(t, "Classic Trolley", All()[0].Name)
}

func TestPresetOutcomes(t *testing.T) {
	tests := []struct {
		key   string
		level string
		want  harm.Recommendation
	}{
		{"classicTrolley", "none", harm.RecommendOptionB},
		// 3 × 10 years against 77.
		{"youngVsOld", "none", harm.RecommendOptionA},
		{"doctorVsCriminal", "none", harm.RecommendNeutral},
		{"doctorVsCriminal", "medium", harm.RecommendOptionA},
		{"jaywalker", "low", harm.RecommendNeutral},
		{"jaywalker", "high", harm.RecommendOptionB},
		// 2 × 45 against 57, then 57 × 1.8 = 102.6.
		{"pregnantWoman", "medium", harm.RecommendOptionB},
		{"pregnantWoman", "high", harm.RecommendOptionA},
		{"petVsPerson", "high", harm.RecommendOptionA},
	}
	for _, tt := range tests {
		t.Run(tt.key+"/"+tt.level, func(t *testing.T) {
			p, err := Get(tt.key)
			require.NoError(t, err)
			l, err := harm.LevelByKey(tt.level)
			require.NoError(t, err)

			res, err := harm.AnalyzeScenario(p.Scenario, l.Flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Recommendation)
		})
	}
}

func TestSimpleModeIsATie(t *testing.T) {
	res, err := harm.AnalyzeScenario(Simple(), harm.FeatureFlags{})
	require.NoError(t, err)
	assert.Equal(t, harm.RecommendNeutral, res.Recommendation)
	assert.Equal(t, 50.0, res.OptionA.LifeYearsLost)
}
