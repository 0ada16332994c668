package loss

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

func regression(p Pointwise, out, target tensor.Tensor, r Reduction, scalingFactor float64) (*tensor.Dense, error) {
	o, err := newArray(out)
	if err != nil {
		return nil, err
	}
	t, err := newArray(target)
	if err != nil {
		return nil, err
	}
	elems, err := elementwise(p, o, t.scaled(scalingFactor))
	if err != nil {
		return nil, err
	}
	return reduce(elems, r, resultDtype(out))
}

// L1 is the absolute error between out and target*scalingFactor, both
// flattened, collapsed with r.
func L1(out, target tensor.Tensor, r Reduction, scalingFactor float64) (*tensor.Dense, error) {
	res, err := regression(AbsoluteError{}, out, target, r, scalingFactor)
	return res, errors.WithMessage(err, "l1")
}

// MSE is the squared error between out and target*scalingFactor, both
// flattened, collapsed with r.
func MSE(out, target tensor.Tensor, r Reduction, scalingFactor float64) (*tensor.Dense, error) {
	res, err := regression(SquaredError{}, out, target, r, scalingFactor)
	return res, errors.WithMessage(err, "mse")
}

// RegressionFunc is the signature shared by L1 and MSE.
type RegressionFunc func(out, target tensor.Tensor, r Reduction, scalingFactor float64) (*tensor.Dense, error)

// perClass averages fn over the class channels of [batch, class, ...]
// tensors.
//
// A batch of one is not split: fn runs once over the whole tensor and the
// result is still divided by the class count. Callers rely on this value, so
// keep it even though it differs from a true per-class mean.
func perClass(name string, fn RegressionFunc, inp, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
	in, err := newArray(inp)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: input", name)
	}
	tg, err := newArray(target)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: target", name)
	}
	if in.dims() < 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s: input shape %v has no class axis", name, in.shape)
	}

	classes, reduction, scaling := in.shape[1], ReductionMean, 1.0
	if p != nil {
		reduction, scaling = p.ReductionFor(name), p.Scaling()
		if n := p.NumClasses(); n > 0 {
			classes = n
		}
	}
	if classes == 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "%s: class count is %d", name, classes)
	}

	dt := resultDtype(inp)
	var acc accumulator
	if in.shape[0] == 1 {
		res, err := fn(inp, target, reduction, scaling)
		if err != nil {
			return nil, err
		}
		if err := acc.add(res, 1); err != nil {
			return nil, errors.WithMessage(err, name)
		}
		return acc.result(float64(classes), dt)
	}

	for i := 0; i < classes; i++ {
		ic, err := in.channel(i)
		if err != nil {
			return nil, errors.WithMessage(err, name)
		}
		tc, err := tg.channel(i)
		if err != nil {
			return nil, errors.WithMessage(err, name)
		}
		res, err := fn(ic.dense(dt), tc.dense(tensor.Float64), reduction, scaling)
		if err != nil {
			return nil, errors.WithMessagef(err, "class %d", i)
		}
		if err := acc.add(res, 1); err != nil {
			return nil, errors.WithMessage(err, name)
		}
	}
	return acc.result(float64(classes), dt)
}

// L1Loss is the class-averaged L1 over [batch, class, ...] tensors. The
// reduction comes from loss_function.l1 and the scaling factor from
// scaling_factor. The class count is model.num_classes, or inp's channel
// axis when p is nil or sets none. With nil p the reduction is mean and
// targets are not scaled.
func L1Loss(inp, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
	return perClass("l1", L1, inp, target, p)
}

// MSELoss is the class-averaged MSE over [batch, class, ...] tensors, with
// the same defaults as L1Loss and the reduction taken from
// loss_function.mse.
func MSELoss(inp, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
	return perClass("mse", MSE, inp, target, p)
}
