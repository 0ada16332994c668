package loss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHot(t *testing.T) {
	labels := newDense([]int{2, 1, 3}, []float64{0, 1, 2, 2, 2, 0})

	tests := []struct {
		description string
		classList   []ClassID
		wantShape   []int
		want        []float64
	}{
		{
			"one channel per label",
			[]ClassID{Class(0), Class(1), Class(2)},
			[]int{2, 3, 3},
			[]float64{
				1, 0, 0, 0, 1, 0, 0, 0, 1,
				0, 0, 1, 0, 0, 0, 1, 1, 0,
			},
		},
		{
			"union of labels",
			[]ClassID{Class(0), Class(1, 2)},
			[]int{2, 2, 3},
			[]float64{
				1, 0, 0, 0, 1, 1,
				0, 0, 1, 1, 1, 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			enc, err := OneHot(labels, tt.classList)
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, []int(enc.Shape()))
			assert.Equal(t, tt.want, enc.Data())
		})
	}
}

func TestOneHotWithoutChannelAxis(t *testing.T) {
	labels := newDense([]int{1, 2, 2}, []float64{1, 0, 0, 1})

	enc, err := OneHot(labels, []ClassID{Class(0), Class(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2, 2}, []int(enc.Shape()))
	assert.Equal(t, []float64{0, 1, 1, 0, 1, 0, 0, 1}, enc.Data())
}

func TestOneHotErrors(t *testing.T) {
	_, err := OneHot(newDense([]int{2, 1, 1}, []float64{0, 1}), nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = OneHot(newDense([]int{2}, []float64{0, 1}), []ClassID{Class(0)})
	require.ErrorIs(t, err, ErrShapeMismatch)
}
