package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCEZeros(t *testing.T) {
	out := newDense([]int{2, 1, 3}, make([]float64, 6))
	target := newDense([]int{2, 1, 3}, make([]float64, 6))

	res, err := CE(out, target)
	require.NoError(t, err)
	assert.InDelta(t, 0, scalarOf(t, res), tolerance)
}

func TestCEValue(t *testing.T) {
	out := newDense([]int{2}, []float64{0.8, 0.4})
	target := newDense([]int{2}, []float64{1, 0})

	res, err := CE(out, target)
	require.NoError(t, err)
	want := -(math.Log(0.8) + math.Log(0.6)) / 2
	assert.InDelta(t, want, scalarOf(t, res), tolerance)
}

func TestCESaturatedPredictionIsFinite(t *testing.T) {
	res, err := CE(newDense([]int{1}, []float64{0}), newDense([]int{1}, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 100, scalarOf(t, res), tolerance)
}

func TestCELogitsValue(t *testing.T) {
	out := newDense([]int{3}, []float64{0, 2, -3})
	target := newDense([]int{3}, []float64{1, 1, 0})

	res, err := CELogits(out, target)
	require.NoError(t, err)
	want := (math.Log(2) + math.Log1p(math.Exp(-2)) + math.Log1p(math.Exp(-3))) / 3
	assert.InDelta(t, want, scalarOf(t, res), tolerance)
}

func TestCELogitsMatchesCEOnSigmoid(t *testing.T) {
	logits := []float64{-4, -0.5, 0, 0.3, 7}
	probs := make([]float64, len(logits))
	for i, x := range logits {
		probs[i] = Sigmoid(x)
	}
	target := newDense([]int{5}, []float64{0, 1, 1, 0, 1})

	fromLogits, err := CELogits(newDense([]int{5}, logits), target)
	require.NoError(t, err)
	fromProbs, err := CE(newDense([]int{5}, probs), target)
	require.NoError(t, err)
	assert.InDelta(t, scalarOf(t, fromProbs), scalarOf(t, fromLogits), 1e-9)
}

func TestBinaryLossesRejectNonBinaryTargets(t *testing.T) {
	out := newDense([]int{3}, []float64{0.2, 0.5, 0.9})
	for _, target := range [][]float64{
		{0, 1, 2},
		{0, 0.5, 1},
		{-1, 0, 1},
	} {
		_, err := CE(out, newDense([]int{3}, target))
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "binary")

		_, err = CELogits(out, newDense([]int{3}, target))
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestCERejectsOutputsOutsideUnitInterval(t *testing.T) {
	target := newDense([]int{2}, []float64{1, 0})
	for _, tt := range []struct {
		description string
		out         []float64
	}{
		{"above one", []float64{1.5, 0.2}},
		{"negative", []float64{0.5, -0.2}},
		{"not a number", []float64{math.NaN(), 0.5}},
	} {
		t.Run(tt.description, func(t *testing.T) {
			_, err := CE(newDense([]int{2}, tt.out), target)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), "[0, 1]")
		})
	}

	res, err := CE(newDense([]int{2}, []float64{1, 0}), target)
	require.NoError(t, err)
	assert.InDelta(t, 0, scalarOf(t, res), tolerance)

	// Logits are unbounded.
	res, err = CELogits(newDense([]int{2}, []float64{1.5, -0.2}), target)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(scalarOf(t, res)))
}
