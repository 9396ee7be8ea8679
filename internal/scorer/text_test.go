package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

func TestWriteWeightedText(t *testing.T) {
	res := harm.WeightedResult{
		OptionA:        harm.WeightedOption{Label: "Swerve", TotalPeople: 1, Value: 41.02, Score: 45.9},
		OptionB:        harm.WeightedOption{Label: "Stay", TotalPeople: 5, Value: 48.3, Score: 54.1},
		Recommendation: harm.RecommendOptionA,
		Weights:        harm.DefaultWeights(),
	}
	var sb strings.Builder
	require.NoError(t, WriteWeightedText(&sb, res))
	out := sb.String()

	assert.Contains(t, out, "- **Swerve**: 1 people, weighted harm 41.02, share 45.9%")
	assert.Contains(t, out, "Recommendation: **Swerve**")
	assert.Contains(t, out, "number of people 8, certainty 7")

	res.Recommendation = harm.RecommendNeutral
	sb.Reset()
	require.NoError(t, WriteWeightedText(&sb, res))
	assert.Contains(t, sb.String(), "Recommendation: **neutral**")
}
