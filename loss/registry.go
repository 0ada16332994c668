// Package loss implements the losses used to train the segmentation model:
// binary and multi-class cross-entropy, a generic per-class categorical
// cross-entropy, and class-averaged L1 and MSE. Inputs are gorgonia tensors
// shaped [batch, class, spatial...]; results are scalar tensors unless the
// reduction is none.
package loss

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorgonia.org/tensor"
)

// Func is the uniform signature of a loss selected by name.
type Func func(out, target tensor.Tensor, p *Params) (*tensor.Dense, error)

var registry = map[string]Func{
	"cel": CEL,
	"ce": func(out, target tensor.Tensor, _ *Params) (*tensor.Dense, error) {
		return CE(out, target)
	},
	"ce_logits": func(out, target tensor.Tensor, _ *Params) (*tensor.Dense, error) {
		return CELogits(out, target)
	},
	"cce": func(out, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
		return CCEGeneric(out, target, p, CE)
	},
	"cce_logits": func(out, target tensor.Tensor, p *Params) (*tensor.Dense, error) {
		return CCEGeneric(out, target, p, CELogits)
	},
	"l1":  L1Loss,
	"mse": MSELoss,
}

// Names lists the registered loss names in sorted order.
func Names() []string {
	names := lo.Keys(registry)
	slices.Sort(names)
	return names
}

// Lookup returns the loss registered under name, case-insensitively.
func Lookup(name string) (Func, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLoss, "%q, known losses are \"%s\"", name, strings.Join(Names(), "\", \""))
	}
	return fn, nil
}

// FromParams returns the loss named by p's loss_function section.
func FromParams(p *Params) (Func, error) {
	if p == nil || p.LossFunction.Name == "" {
		return nil, errors.Wrap(ErrInvalidConfiguration, "loss_function is not set")
	}
	return Lookup(p.LossFunction.Name)
}
