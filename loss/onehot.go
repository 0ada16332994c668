package loss

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// OneHot expands a label map of shape [batch, 1, spatial...] or
// [batch, spatial...] into a float64 mask of shape
// [batch, len(classList), spatial...]. Channel k is 1 where the label is one
// of classList[k].Labels.
func OneHot(target tensor.Tensor, classList []ClassID) (*tensor.Dense, error) {
	t, err := newArray(target)
	if err != nil {
		return nil, err
	}
	enc, err := oneHot(t, classList)
	if err != nil {
		return nil, err
	}
	return enc.dense(tensor.Float64), nil
}

func oneHot(t array, classList []ClassID) (array, error) {
	if len(classList) == 0 {
		return array{}, errors.Wrap(ErrInvalidConfiguration, "model.class_list is empty")
	}
	if t.dims() < 2 {
		return array{}, errors.Wrapf(ErrShapeMismatch, "label tensor of shape %v has no spatial axes", t.shape)
	}
	spatial := t.shape[1:]
	if t.dims() > 2 && t.shape[1] == 1 {
		spatial = t.shape[2:]
	}
	batch, rest, classes := t.shape[0], shapeSize(spatial), len(classList)

	out := make([]float64, batch*classes*rest)
	for n := 0; n < batch; n++ {
		labels := t.data[n*rest : (n+1)*rest]
		for k, class := range classList {
			dst := out[(n*classes+k)*rest : (n*classes+k+1)*rest]
			for j, v := range labels {
				if v == float64(int(v)) && class.Matches(int(v)) {
					dst[j] = 1
				}
			}
		}
	}
	shape := append([]int{batch, classes}, spatial...)
	return array{data: out, shape: shape}, nil
}

// isEncoded reports whether target already has one channel per class and
// binary values, so it can be used without expansion.
func isEncoded(target, out array, classes int) bool {
	if classes < 2 || target.dims() < 2 || target.dims() != out.dims() || target.shape[1] != classes {
		return false
	}
	for i := range target.shape {
		if target.shape[i] != out.shape[i] {
			return false
		}
	}
	return checkBinary(target) == nil
}
