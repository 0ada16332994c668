package loss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"cce", "cce_logits", "ce", "ce_logits", "cel", "l1", "mse"}, Names())
}

func TestLookup(t *testing.T) {
	fn, err := Lookup(" MSE ")
	require.NoError(t, err)

	inp := filled(2, 2, 2, func(int) float64 { return 1 })
	target := filled(2, 2, 2, func(int) float64 { return 0 })
	res, err := fn(inp, target, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, scalarOf(t, res), tolerance)

	_, err = Lookup("dice")
	require.ErrorIs(t, err, ErrUnknownLoss)
	assert.Contains(t, err.Error(), "mse")
}

func TestLookupCCE(t *testing.T) {
	out, labels, ce0, ce1 := cceFixture()
	fn, err := Lookup("cce")
	require.NoError(t, err)

	res, err := fn(out, labels, &Params{Model: ModelConfig{ClassList: []ClassID{Class(0), Class(1)}}})
	require.NoError(t, err)
	assert.InDelta(t, (ce0+ce1)/2, scalarOf(t, res), 1e-12)
}

func TestFromParams(t *testing.T) {
	p, err := ParseParams([]byte("loss_function:\n  l1:\n    reduction: sum\n"))
	require.NoError(t, err)
	fn, err := FromParams(p)
	require.NoError(t, err)

	inp := filled(2, 1, 3, func(int) float64 { return 2 })
	target := filled(2, 1, 3, func(int) float64 { return 0 })
	p.Model.NumClasses = 1
	res, err := fn(inp, target, p)
	require.NoError(t, err)
	assert.InDelta(t, 12, scalarOf(t, res), tolerance)

	_, err = FromParams(nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}
