// Package lossgraph builds the segmentation losses as gorgonia expression
// graph nodes, so a training loop on gorgonia can differentiate them.
package lossgraph

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"segloss/loss"
)

// Elementwise builds a node holding the per-element loss of out against
// target. The result has out's shape.
type Elementwise func(out, target *G.Node) (*G.Node, error)

func constLike(n *G.Node, v float64) *G.Node {
	if n.Dtype() == tensor.Float32 {
		return G.NewConstant(float32(v))
	}
	return G.NewConstant(v)
}

func checkShapes(out, target *G.Node) error {
	if !out.Shape().Eq(target.Shape()) {
		return errors.Wrapf(loss.ErrShapeMismatch, "output shape %v, target shape %v", out.Shape(), target.Shape())
	}
	return nil
}

// Reduce collapses elementwise losses. ReductionNone returns elems as is.
func Reduce(elems *G.Node, r loss.Reduction) (*G.Node, error) {
	switch r {
	case loss.ReductionMean:
		return G.Mean(elems)
	case loss.ReductionSum:
		return G.Sum(elems)
	case loss.ReductionNone:
		return elems, nil
	}
	return nil, errors.Wrapf(loss.ErrInvalidConfiguration, "unsupported reduction %v", r)
}

// Scaled multiplies target by scalingFactor.
func Scaled(target *G.Node, scalingFactor float64) (*G.Node, error) {
	if scalingFactor == 1 {
		return target, nil
	}
	return G.Mul(target, constLike(target, scalingFactor))
}

// SquaredError is (out - target)^2.
func SquaredError(out, target *G.Node) (*G.Node, error) {
	if err := checkShapes(out, target); err != nil {
		return nil, err
	}
	diff, err := G.Sub(out, target)
	if err != nil {
		return nil, errors.Wrap(err, "squared error")
	}
	return G.Square(diff)
}

// AbsoluteError is |out - target|.
func AbsoluteError(out, target *G.Node) (*G.Node, error) {
	if err := checkShapes(out, target); err != nil {
		return nil, err
	}
	diff, err := G.Sub(out, target)
	if err != nil {
		return nil, errors.Wrap(err, "absolute error")
	}
	return G.Abs(diff)
}

// bceEpsilon keeps the logs of BinaryCrossEntropy finite.
const bceEpsilon = 1e-12

// BinaryCrossEntropy is -(t*log(p) + (1-t)*log(1-p)) for probabilities p.
func BinaryCrossEntropy(p, t *G.Node) (*G.Node, error) {
	if err := checkShapes(p, t); err != nil {
		return nil, err
	}
	one := constLike(p, 1)
	eps := constLike(p, bceEpsilon)

	var logP, logQ, q, notT, pos, neg, sum *G.Node
	var err error
	if logP, err = G.Add(p, eps); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if logP, err = G.Log(logP); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if q, err = G.Sub(one, p); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if logQ, err = G.Add(q, eps); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if logQ, err = G.Log(logQ); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if notT, err = G.Sub(one, t); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if pos, err = G.HadamardProd(t, logP); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if neg, err = G.HadamardProd(notT, logQ); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	if sum, err = G.Add(pos, neg); err != nil {
		return nil, errors.Wrap(err, "bce")
	}
	return G.Neg(sum)
}

// BinaryCrossEntropyLogits is BinaryCrossEntropy on sigmoid(x), written as
// max(x, 0) - x*t + log(1 + exp(-|x|)).
func BinaryCrossEntropyLogits(x, t *G.Node) (*G.Node, error) {
	if err := checkShapes(x, t); err != nil {
		return nil, err
	}
	var relu, xt, abs, soft, lin *G.Node
	var err error
	if relu, err = G.Rectify(x); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if xt, err = G.HadamardProd(x, t); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if abs, err = G.Abs(x); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if soft, err = G.Neg(abs); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if soft, err = G.Exp(soft); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if soft, err = G.Log1p(soft); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	if lin, err = G.Sub(relu, xt); err != nil {
		return nil, errors.Wrap(err, "bce logits")
	}
	return G.Add(lin, soft)
}

func reduced(fn Elementwise, out, target *G.Node, r loss.Reduction, scalingFactor float64) (*G.Node, error) {
	t, err := Scaled(target, scalingFactor)
	if err != nil {
		return nil, err
	}
	elems, err := fn(out, t)
	if err != nil {
		return nil, err
	}
	return Reduce(elems, r)
}

// MSE mirrors loss.MSE on graph nodes.
func MSE(out, target *G.Node, r loss.Reduction, scalingFactor float64) (*G.Node, error) {
	return reduced(SquaredError, out, target, r, scalingFactor)
}

// L1 mirrors loss.L1 on graph nodes.
func L1(out, target *G.Node, r loss.Reduction, scalingFactor float64) (*G.Node, error) {
	return reduced(AbsoluteError, out, target, r, scalingFactor)
}

// BCE mirrors loss.CE on graph nodes. Target values are not checked.
func BCE(out, target *G.Node) (*G.Node, error) {
	return reduced(BinaryCrossEntropy, out, target, loss.ReductionMean, 1)
}

// BCEWithLogits mirrors loss.CELogits on graph nodes.
func BCEWithLogits(out, target *G.Node) (*G.Node, error) {
	return reduced(BinaryCrossEntropyLogits, out, target, loss.ReductionMean, 1)
}
