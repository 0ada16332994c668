package lossgraph

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"segloss/loss"
)

func nonClassAxes(n *G.Node) ([]int, error) {
	dims := n.Shape().Dims()
	if dims < 2 {
		return nil, errors.Wrapf(loss.ErrShapeMismatch, "shape %v has no class axis", n.Shape())
	}
	axes := []int{0}
	for a := 2; a < dims; a++ {
		axes = append(axes, a)
	}
	return axes, nil
}

// ClassMeans returns the mean of elems over every axis but the class axis,
// a vector with one entry per class.
func ClassMeans(elems *G.Node) (*G.Node, error) {
	axes, err := nonClassAxes(elems)
	if err != nil {
		return nil, err
	}
	return G.Mean(elems, axes...)
}

// PerClass mirrors loss.MSELoss and loss.L1Loss: fn is reduced per class
// channel, summed over classes and divided by the class count. A batch of
// one is reduced as a whole before the division.
//
// Every class channel holds the same number of elements, so the per-class
// reductions fold into a single reduction over the whole tensor.
func PerClass(inp, target *G.Node, fn Elementwise, r loss.Reduction, scalingFactor float64) (*G.Node, error) {
	if _, err := nonClassAxes(inp); err != nil {
		return nil, err
	}
	if r == loss.ReductionNone {
		return nil, errors.Wrap(loss.ErrInvalidConfiguration, "per-class graph losses need a mean or sum reduction")
	}
	classes := inp.Shape()[1]
	total, err := reduced(fn, inp, target, r, scalingFactor)
	if err != nil {
		return nil, err
	}
	if inp.Shape()[0] == 1 || r == loss.ReductionSum {
		return G.Div(total, constLike(total, float64(classes)))
	}
	return total, nil
}

// ClassWeighted mirrors loss.CCEGeneric for a one-hot target already laid
// out as [batch, class, ...]: the per-class mean losses are combined as a
// weighted sum, or averaged when weights is nil.
func ClassWeighted(out, onehot *G.Node, fn Elementwise, weights []float64) (*G.Node, error) {
	elems, err := fn(out, onehot)
	if err != nil {
		return nil, err
	}
	means, err := ClassMeans(elems)
	if err != nil {
		return nil, err
	}
	if weights == nil {
		return G.Mean(means)
	}
	if classes := out.Shape()[1]; len(weights) != classes {
		return nil, errors.Wrapf(loss.ErrInvalidConfiguration, "expected %d weights, got %d", classes, len(weights))
	}
	var backing interface{} = append([]float64(nil), weights...)
	if out.Dtype() == tensor.Float32 {
		w32 := make([]float32, len(weights))
		for i, w := range weights {
			w32[i] = float32(w)
		}
		backing = w32
	}
	w := G.NewConstant(tensor.New(tensor.WithShape(len(weights)), tensor.WithBacking(backing)))
	weighted, err := G.HadamardProd(means, w)
	if err != nil {
		return nil, errors.Wrap(err, "class weights")
	}
	return G.Sum(weighted)
}
