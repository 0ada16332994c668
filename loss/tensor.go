package loss

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// array is a row-major float64 copy of a tensor. Losses work on arrays so
// that inputs are never touched.
type array struct {
	data  []float64
	shape []int
}

type number interface {
	~float32 | ~float64 | ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func widen[T number](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

type materializer interface {
	IsMaterializable() bool
	Materialize() tensor.Tensor
}

func newArray(t tensor.Tensor) (array, error) {
	if t == nil {
		return array{}, errors.Wrap(ErrInvalidInput, "nil tensor")
	}
	if m, ok := t.(materializer); ok && m.IsMaterializable() {
		t = m.Materialize()
	}
	shape := []int(t.Shape().Clone())
	var data []float64
	switch d := t.Data().(type) {
	case []float64:
		data = append([]float64(nil), d...)
	case []float32:
		data = widen(d)
	case []int:
		data = widen(d)
	case []int8:
		data = widen(d)
	case []int16:
		data = widen(d)
	case []int32:
		data = widen(d)
	case []int64:
		data = widen(d)
	case []uint:
		data = widen(d)
	case []uint8:
		data = widen(d)
	case []uint16:
		data = widen(d)
	case []uint32:
		data = widen(d)
	case []uint64:
		data = widen(d)
	case []bool:
		data = make([]float64, len(d))
		for i, b := range d {
			if b {
				data[i] = 1
			}
		}
	case float64:
		data = []float64{d}
	case float32:
		data = []float64{float64(d)}
	case int:
		data = []float64{float64(d)}
	default:
		return array{}, errors.Wrapf(ErrInvalidInput, "unsupported tensor dtype %v", t.Dtype())
	}
	if size := shapeSize(shape); size != len(data) {
		return array{}, errors.Wrapf(ErrShapeMismatch, "shape %v holds %d elements, backing has %d", shape, size, len(data))
	}
	return array{data: data, shape: shape}, nil
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (a array) dims() int { return len(a.shape) }

// channel returns a[:, i, ...] with the class axis removed.
func (a array) channel(i int) (array, error) {
	if a.dims() < 2 {
		return array{}, errors.Wrapf(ErrShapeMismatch, "tensor of shape %v has no class axis", a.shape)
	}
	batch, classes := a.shape[0], a.shape[1]
	if i < 0 || i >= classes {
		return array{}, errors.Wrapf(ErrShapeMismatch, "class %d out of range for shape %v", i, a.shape)
	}
	rest := shapeSize(a.shape[2:])
	out := make([]float64, 0, batch*rest)
	for n := 0; n < batch; n++ {
		off := (n*classes + i) * rest
		out = append(out, a.data[off:off+rest]...)
	}
	shape := append([]int{batch}, a.shape[2:]...)
	return array{data: out, shape: shape}, nil
}

func (a array) scaled(f float64) array {
	out := append([]float64(nil), a.data...)
	if f != 1 {
		floats.Scale(f, out)
	}
	return array{data: out, shape: a.shape}
}

func (a array) dense(dt tensor.Dtype) *tensor.Dense {
	shape := append([]int(nil), a.shape...)
	if dt == tensor.Float32 {
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(narrow(a.data)))
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(append([]float64(nil), a.data...)))
}

func narrow(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}

// resultDtype is the float dtype results are reported in: float32 outputs
// stay float32, everything else is float64.
func resultDtype(t tensor.Tensor) tensor.Dtype {
	if t != nil && t.Dtype() == tensor.Float32 {
		return tensor.Float32
	}
	return tensor.Float64
}

func scalarDense(v float64, dt tensor.Dtype) *tensor.Dense {
	if dt == tensor.Float32 {
		return tensor.New(tensor.FromScalar(float32(v)))
	}
	return tensor.New(tensor.FromScalar(v))
}

// reduce collapses elementwise losses. ReductionNone returns a 1-D tensor.
func reduce(elems []float64, r Reduction, dt tensor.Dtype) (*tensor.Dense, error) {
	switch r {
	case ReductionMean:
		if len(elems) == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "mean of an empty tensor")
		}
		return scalarDense(floats.Sum(elems)/float64(len(elems)), dt), nil
	case ReductionSum:
		return scalarDense(floats.Sum(elems), dt), nil
	case ReductionNone:
		return array{data: elems, shape: []int{len(elems)}}.dense(dt), nil
	}
	return nil, errors.Wrapf(ErrInvalidConfiguration, "unsupported reduction %v", r)
}

// Scalar reads the value of a single-element loss tensor.
func Scalar(t tensor.Tensor) (float64, error) {
	a, err := newArray(t)
	if err != nil {
		return 0, err
	}
	if len(a.data) != 1 {
		return 0, errors.Wrapf(ErrShapeMismatch, "expected a scalar, got shape %v", a.shape)
	}
	return a.data[0], nil
}

// accumulator adds loss tensors of equal size, the way per-class losses are
// summed before the class mean is taken.
type accumulator struct {
	sum   []float64
	shape []int
}

func (acc *accumulator) add(t *tensor.Dense, weight float64) error {
	a, err := newArray(t)
	if err != nil {
		return err
	}
	if acc.sum == nil {
		acc.sum = make([]float64, len(a.data))
		acc.shape = a.shape
	}
	if len(a.data) != len(acc.sum) {
		return errors.Wrapf(ErrShapeMismatch, "cannot add loss of shape %v to accumulated shape %v", a.shape, acc.shape)
	}
	floats.AddScaled(acc.sum, weight, a.data)
	return nil
}

func (acc *accumulator) result(divisor float64, dt tensor.Dtype) (*tensor.Dense, error) {
	if acc.sum == nil {
		return nil, errors.Wrap(ErrInvalidInput, "no class losses to aggregate")
	}
	if divisor == 0 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "class count is zero")
	}
	out := append([]float64(nil), acc.sum...)
	floats.Scale(1/divisor, out)
	if len(acc.shape) == 0 {
		return scalarDense(out[0], dt), nil
	}
	return array{data: out, shape: acc.shape}.dense(dt), nil
}

func sameSize(out, target array) error {
	if len(out.data) != len(target.data) {
		return errors.Wrapf(ErrShapeMismatch, "output shape %v and target shape %v differ in size", out.shape, target.shape)
	}
	return nil
}
