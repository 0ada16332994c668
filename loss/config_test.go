package loss

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
model:
  class_list: [0, "1||2", 4]
  num_classes: 3
loss_function:
  mse:
    reduction: sum
weights:
  2: 0.2
  0: 0.5
  1: 0.3
scaling_factor: 2.5
`

func TestParseParams(t *testing.T) {
	p, err := ParseParams([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []ClassID{Class(0), Class(1, 2), Class(4)}, p.Model.ClassList)
	assert.Equal(t, 3, p.NumClasses())
	assert.Equal(t, "mse", p.LossFunction.Name)
	assert.Equal(t, ReductionSum, p.ReductionFor("mse"))
	assert.Equal(t, ReductionMean, p.ReductionFor("l1"))
	assert.Equal(t, 2.5, p.Scaling())

	assert.Equal(t, []float64{0.2, 0.5, 0.3}, p.Weights.Values())
	w, ok := p.Weights.ForClass(0)
	assert.True(t, ok)
	assert.Equal(t, 0.5, w)
}

func TestParseParamsDefaults(t *testing.T) {
	p, err := ParseParams([]byte("model:\n  class_list: [0, 1]\nloss_function: dc\n"))
	require.NoError(t, err)

	assert.Nil(t, p.Weights)
	assert.Equal(t, 2, p.NumClasses())
	assert.Equal(t, "dc", p.LossFunction.Name)
	assert.Equal(t, ReductionMean, p.ReductionFor("mse"))
	assert.Equal(t, 1.0, p.Scaling())
}

func TestParseParamsWeightList(t *testing.T) {
	p, err := ParseParams([]byte("weights: [0.5, 2.0]\n"))
	require.NoError(t, err)
	assert.Equal(t, UniformWeights(0.5, 2.0), p.Weights)
}

func TestParseParamsErrors(t *testing.T) {
	tests := []struct {
		description string
		config      string
	}{
		{"unknown reduction", "loss_function:\n  mse:\n    reduction: max\n"},
		{"bad class id", "model:\n  class_list: [0, a]\n"},
		{"class count disagrees", "model:\n  class_list: [0, 1]\n  num_classes: 3\n"},
		{"weight count disagrees", "model:\n  num_classes: 3\nweights: [1, 2]\n"},
		{"duplicate weight", "weights: {0: 1, 0: 2}\n"},
		{"weight key not an index", "weights: {bg: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := ParseParams([]byte(tt.config))
			require.Error(t, err)
		})
	}
}

func TestParseReduction(t *testing.T) {
	for _, name := range []string{"mean", "sum", "none"} {
		r, err := ParseReduction(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.String())
	}
	_, err := ParseReduction("avg")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumClasses())

	_, err = LoadParams(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
