package loss

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// BinaryFunc is a loss over a single output/target pair, such as CE or
// CELogits. CCEGeneric applies one per class channel.
type BinaryFunc func(out, target tensor.Tensor) (*tensor.Dense, error)

func checkBinary(target array) error {
	for i, v := range target.data {
		if v != 0 && v != 1 {
			return errors.Wrapf(ErrInvalidInput, "target tensor must be binary (0 or 1), found %v at flat index %d", v, i)
		}
	}
	return nil
}

// checkProbabilities rejects output values outside [0, 1], NaN included.
func checkProbabilities(out array) error {
	for i, v := range out.data {
		if !(v >= 0 && v <= 1) {
			return errors.Wrapf(ErrInvalidInput, "output must be probabilities in [0, 1], found %v at flat index %d", v, i)
		}
	}
	return nil
}

func binaryLoss(p Pointwise, out, target tensor.Tensor, probabilities bool) (*tensor.Dense, error) {
	o, err := newArray(out)
	if err != nil {
		return nil, err
	}
	t, err := newArray(target)
	if err != nil {
		return nil, err
	}
	if err := checkBinary(t); err != nil {
		return nil, err
	}
	if probabilities {
		if err := checkProbabilities(o); err != nil {
			return nil, err
		}
	}
	elems, err := elementwise(p, o, t)
	if err != nil {
		return nil, err
	}
	return reduce(elems, ReductionMean, resultDtype(out))
}

// CE is the mean binary cross-entropy between probabilities out and a
// binary target, both flattened. Log terms are clamped at -100. Outputs
// outside [0, 1] are rejected.
func CE(out, target tensor.Tensor) (*tensor.Dense, error) {
	res, err := binaryLoss(BinaryCrossEntropy{}, out, target, true)
	return res, errors.WithMessage(err, "ce")
}

// CELogits is CE computed from logits, with the sigmoid folded into a
// numerically stable expression.
func CELogits(out, target tensor.Tensor) (*tensor.Dense, error) {
	res, err := binaryLoss(BinaryCrossEntropyLogits{}, out, target, false)
	return res, errors.WithMessage(err, "ce_logits")
}
