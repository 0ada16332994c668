package loss

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// CCEGeneric is a categorical cross-entropy built from a per-class loss.
// The target is one-hot expanded against p.Model.ClassList and cceType is
// applied to out[:, i, ...] and target[:, i, ...] for every class i.
//
// With weights the result is the weighted sum of the class losses, with
// weights[i] keyed by class index. Without weights it is their mean.
func CCEGeneric(out, target tensor.Tensor, p *Params, cceType BinaryFunc) (*tensor.Dense, error) {
	if p == nil || len(p.Model.ClassList) == 0 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "cce: model.class_list is required")
	}
	if cceType == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "cce: no per-class loss given")
	}
	o, err := newArray(out)
	if err != nil {
		return nil, errors.WithMessage(err, "cce: output")
	}
	t, err := newArray(target)
	if err != nil {
		return nil, errors.WithMessage(err, "cce: target")
	}
	classes := len(p.Model.ClassList)
	if o.dims() < 2 || o.shape[1] < classes {
		return nil, errors.Wrapf(ErrShapeMismatch, "cce: output shape %v has fewer than %d class channels", o.shape, classes)
	}
	if !isEncoded(t, o, classes) {
		if t, err = oneHot(t, p.Model.ClassList); err != nil {
			return nil, errors.WithMessage(err, "cce")
		}
	}

	dt := resultDtype(out)
	var acc accumulator
	for i := 0; i < classes; i++ {
		oc, err := o.channel(i)
		if err != nil {
			return nil, errors.WithMessage(err, "cce")
		}
		tc, err := t.channel(i)
		if err != nil {
			return nil, errors.WithMessage(err, "cce")
		}
		classLoss, err := cceType(oc.dense(dt), tc.dense(dt))
		if err != nil {
			return nil, errors.WithMessagef(err, "cce: class %d", i)
		}
		weight := 1.0
		if p.Weights != nil {
			w, ok := p.Weights.ForClass(i)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidConfiguration, "cce: no weight for class %d", i)
			}
			weight = w
		}
		if err := acc.add(classLoss, weight); err != nil {
			return nil, errors.WithMessage(err, "cce")
		}
	}

	if p.Weights != nil {
		return acc.result(1, dt)
	}
	return acc.result(float64(classes), dt)
}
