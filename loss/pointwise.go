package loss

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Pointwise is an elementwise loss term and its derivative with respect to
// the prediction.
type Pointwise interface {
	// Value returns the loss for one prediction/target pair.
	Value(pred, target float64) float64
	// Derivative returns ∂Value/∂pred.
	Derivative(pred, target float64) float64
}

// SquaredError is (pred - target)^2.
type SquaredError struct{}

func (SquaredError) Value(pred, target float64) float64 {
	d := pred - target
	return d * d
}

func (SquaredError) Derivative(pred, target float64) float64 {
	return 2 * (pred - target)
}

// AbsoluteError is |pred - target|. The derivative at zero is 0.
type AbsoluteError struct{}

func (AbsoluteError) Value(pred, target float64) float64 {
	return math.Abs(pred - target)
}

func (AbsoluteError) Derivative(pred, target float64) float64 {
	switch d := pred - target; {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}

// minLog bounds log terms of BinaryCrossEntropy so a saturated prediction
// yields a large finite loss instead of +Inf.
const minLog = -100

// BinaryCrossEntropy is -(t*log(p) + (1-t)*log(1-p)) for probabilities p.
type BinaryCrossEntropy struct{}

func clampedLog(x float64) float64 {
	return math.Max(math.Log(x), minLog)
}

func (BinaryCrossEntropy) Value(pred, target float64) float64 {
	return -(target*clampedLog(pred) + (1-target)*clampedLog(1-pred))
}

func (BinaryCrossEntropy) Derivative(pred, target float64) float64 {
	const eps = 1e-12
	p := math.Min(math.Max(pred, eps), 1-eps)
	return (p - target) / (p * (1 - p))
}

// BinaryCrossEntropyLogits is BinaryCrossEntropy applied to sigmoid(x),
// computed as max(x, 0) - x*t + log(1 + exp(-|x|)).
type BinaryCrossEntropyLogits struct{}

func (BinaryCrossEntropyLogits) Value(x, target float64) float64 {
	return math.Max(x, 0) - x*target + math.Log1p(math.Exp(-math.Abs(x)))
}

func (BinaryCrossEntropyLogits) Derivative(x, target float64) float64 {
	return Sigmoid(x) - target
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func elementwise(p Pointwise, out, target array) ([]float64, error) {
	if err := sameSize(out, target); err != nil {
		return nil, err
	}
	elems := make([]float64, len(out.data))
	for i := range out.data {
		elems[i] = p.Value(out.data[i], target.data[i])
	}
	return elems, nil
}

// Gradient returns ∂L/∂out for L = reduction(p(out, target*scalingFactor)),
// shaped like out. For ReductionNone it is the elementwise derivative.
func Gradient(out, target tensor.Tensor, p Pointwise, r Reduction, scalingFactor float64) (*tensor.Dense, error) {
	o, err := newArray(out)
	if err != nil {
		return nil, err
	}
	t, err := newArray(target)
	if err != nil {
		return nil, err
	}
	if err := sameSize(o, t); err != nil {
		return nil, err
	}
	t = t.scaled(scalingFactor)
	var norm float64
	switch r {
	case ReductionMean:
		norm = 1 / float64(len(o.data))
	case ReductionSum, ReductionNone:
		norm = 1
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unsupported reduction %v", r)
	}
	grad := make([]float64, len(o.data))
	for i := range o.data {
		grad[i] = norm * p.Derivative(o.data[i], t.data[i])
	}
	return array{data: grad, shape: o.shape}.dense(resultDtype(out)), nil
}
