package loss

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// IgnoreIndex marks target positions CEL leaves out of the loss.
const IgnoreIndex = -100

// CEL is multi-class cross-entropy between logits out, shaped [N, C] or
// [N, C, spatial...], and class indices target, shaped [N] or
// [N, spatial...]. A trailing singleton target axis is squeezed.
//
// When p carries weights, their count must equal the last output axis and
// the result is the weighted mean sum(w[y]*nll) / sum(w[y]). Otherwise it
// is the plain mean over positions. A nil p means no weights.
func CEL(out, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
	o, err := newArray(out)
	if err != nil {
		return nil, errors.WithMessage(err, "cel: output")
	}
	t, err := newArray(target)
	if err != nil {
		return nil, errors.WithMessage(err, "cel: target")
	}
	if t.dims() > 1 && t.shape[t.dims()-1] == 1 {
		t.shape = t.shape[:t.dims()-1]
	}
	if o.dims() < 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "cel: output shape %v needs a class axis", o.shape)
	}

	classes := o.shape[1]
	var weights []float64
	if p != nil && p.Weights != nil {
		if last := o.shape[o.dims()-1]; len(p.Weights) != last {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "cel: number of classes %d does not match output shape %d", len(p.Weights), last)
		}
		weights = p.Weights.Values()
		if len(weights) != classes {
			return nil, errors.Wrapf(ErrShapeMismatch, "cel: %d weights for %d output classes", len(weights), classes)
		}
	}

	batch, rest := o.shape[0], shapeSize(o.shape[2:])
	if want := append([]int{batch}, o.shape[2:]...); !slices.Equal(t.shape, want) {
		return nil, errors.Wrapf(ErrShapeMismatch, "cel: target shape %v, want %v for output %v", t.shape, want, o.shape)
	}

	if batch*rest == 0 || classes == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "cel: empty output of shape %v", o.shape)
	}
	// One row per position, one column per class.
	logits := mat.NewDense(batch*rest, classes, nil)
	for n := 0; n < batch; n++ {
		for c := 0; c < classes; c++ {
			src := o.data[(n*classes+c)*rest : (n*classes+c+1)*rest]
			for r, v := range src {
				logits.Set(n*rest+r, c, v)
			}
		}
	}

	var num, den float64
	for row, label := range t.data {
		if label == IgnoreIndex {
			continue
		}
		y := int(label)
		if float64(y) != label || y < 0 || y >= classes {
			return nil, errors.Wrapf(ErrInvalidInput, "cel: target %v at flat index %d is not a class index in [0, %d)", label, row, classes)
		}
		z := logits.RawRowView(row)
		nll := floats.LogSumExp(z) - z[y]
		w := 1.0
		if weights != nil {
			w = weights[y]
		}
		num += w * nll
		den += w
	}
	if den == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "cel: no target position carries weight")
	}
	return scalarDense(num/den, resultDtype(out)), nil
}
