package ant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antclust/internal/similarity"
)

func TestNewAntStartsUnlabeled(t *testing.T) {
	gene := []similarity.Value{{1, 2}, similarity.Scalar(3)}
	a := New(4, gene, nil)

	assert.Equal(t, 4, a.Index)
	assert.Equal(t, NoLabel, a.Label)
	assert.False(t, a.Affiliated())
	assert.Zero(t, a.Template)
	assert.Zero(t, a.MPlus)
	assert.Equal(t, gene, a.Gene)

	gene[0] = similarity.Value{9, 9}
	assert.Equal(t, similarity.Value{1, 2}, a.Gene[0], "gene slots are copied")
}

func TestMeanMaxTemplate(t *testing.T) {
	a := New(0, nil, MeanMax{})

	a.UpdateTemplate(0.2)
	assert.Equal(t, 1, a.Age)
	assert.InDelta(t, 0.2, a.Template, 1e-12)

	a.UpdateTemplate(0.8)
	assert.InDelta(t, 0.5, a.MeanSimilarity, 1e-12)
	assert.InDelta(t, 0.8, a.MaxSimilarity, 1e-12)
	assert.InDelta(t, 0.65, a.Template, 1e-12)

	a.UpdateTemplate(0.2)
	assert.InDelta(t, 0.4, a.MeanSimilarity, 1e-12)
	assert.InDelta(t, 0.6, a.Template, 1e-12)
}

func TestRunningMeanTemplate(t *testing.T) {
	a := New(0, nil, RunningMean{})
	for _, sim := range []float64{0.1, 0.3, 0.5} {
		a.UpdateTemplate(sim)
	}
	assert.Equal(t, 3, a.Age)
	assert.InDelta(t, 0.3, a.Template, 1e-12)
	assert.InDelta(t, 0.5, a.MaxSimilarity, 1e-12)
}

func TestTemplateRuleByName(t *testing.T) {
	rule, err := TemplateRuleByName("")
	require.NoError(t, err)
	assert.Equal(t, MeanMax{}, rule)

	rule, err = TemplateRuleByName("running_mean")
	require.NoError(t, err)
	assert.Equal(t, RunningMean{}, rule)

	_, err = TemplateRuleByName("median")
	require.ErrorIs(t, err, ErrTemplateRuleNotFound)

	assert.Equal(t, []string{"mean_max", "running_mean"}, TemplateRuleNames())
}
