package loss

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Reduction selects how elementwise losses collapse to the returned value.
type Reduction int

const (
	// ReductionMean averages over all elements. It is the default.
	ReductionMean Reduction = iota
	// ReductionSum adds all elements.
	ReductionSum
	// ReductionNone returns the elementwise losses unreduced.
	ReductionNone
)

var reductionNames = [...]string{"mean", "sum", "none"}

func (r Reduction) String() string {
	if r < 0 || int(r) >= len(reductionNames) {
		return "Reduction(" + strconv.Itoa(int(r)) + ")"
	}
	return reductionNames[r]
}

// ParseReduction converts "mean", "sum" or "none" to a Reduction.
func ParseReduction(s string) (Reduction, error) {
	for i, name := range reductionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Reduction(i), nil
		}
	}
	return ReductionMean, errors.Wrapf(ErrInvalidConfiguration, "reduction %q is not one of %s", s, strings.Join(reductionNames[:], ", "))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reduction) UnmarshalText(text []byte) error {
	parsed, err := ParseReduction(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Reduction) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ClassID identifies one channel of a one-hot encoded target. A channel is
// active where the label equals any of Labels.
type ClassID struct {
	Labels []int
}

// Class builds a ClassID matching any of the given labels.
func Class(labels ...int) ClassID {
	return ClassID{Labels: labels}
}

// ParseClassID accepts a single integer label or a union written as "1||2" or "1|2".
func ParseClassID(s string) (ClassID, error) {
	sep := "|"
	if strings.Contains(s, "||") {
		sep = "||"
	}
	parts := strings.Split(s, sep)
	labels := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return ClassID{}, errors.Wrapf(ErrInvalidConfiguration, "class %q: label %q is not an integer", s, part)
		}
		labels = append(labels, v)
	}
	return ClassID{Labels: labels}, nil
}

// Matches reports whether label belongs to the class.
func (c ClassID) Matches(label int) bool {
	return lo.Contains(c.Labels, label)
}

func (c ClassID) String() string {
	return strings.Join(lo.Map(c.Labels, func(l int, _ int) string { return strconv.Itoa(l) }), "||")
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ClassID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Wrapf(ErrInvalidConfiguration, "line %d: class id must be a scalar", node.Line)
	}
	parsed, err := ParseClassID(node.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClassWeight is one entry of the weights mapping.
type ClassWeight struct {
	Class  int
	Weight float64
}

// Weights is the ordered class -> weight mapping. Order follows the
// configuration file.
type Weights []ClassWeight

// UniformWeights assigns the given weights to classes 0..len(ws)-1.
func UniformWeights(ws ...float64) Weights {
	return lo.Map(ws, func(w float64, i int) ClassWeight { return ClassWeight{Class: i, Weight: w} })
}

// Values returns the weights in insertion order.
func (w Weights) Values() []float64 {
	return lo.Map(w, func(cw ClassWeight, _ int) float64 { return cw.Weight })
}

// ForClass returns the weight keyed by class index i.
func (w Weights) ForClass(i int) (float64, bool) {
	cw, ok := lo.Find(w, func(cw ClassWeight) bool { return cw.Class == i })
	return cw.Weight, ok
}

// UnmarshalYAML accepts either a mapping of class index to weight or a
// sequence, in which case the keys are the positions.
func (w *Weights) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Weights, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			class, err := strconv.Atoi(key.Value)
			if err != nil {
				return errors.Wrapf(ErrInvalidConfiguration, "line %d: weight key %q is not a class index", key.Line, key.Value)
			}
			var weight float64
			if err := val.Decode(&weight); err != nil {
				return errors.Wrapf(ErrInvalidConfiguration, "line %d: weight for class %d: %v", val.Line, class, err)
			}
			out = append(out, ClassWeight{Class: class, Weight: weight})
		}
		*w = out
	case yaml.SequenceNode:
		var ws []float64
		if err := node.Decode(&ws); err != nil {
			return errors.Wrapf(ErrInvalidConfiguration, "line %d: weights: %v", node.Line, err)
		}
		*w = UniformWeights(ws...)
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "line %d: weights must be a mapping or a list", node.Line)
	}
	return nil
}

// ModelConfig is the subset of the model section the losses read.
type ModelConfig struct {
	ClassList  []ClassID `yaml:"class_list"`
	NumClasses int       `yaml:"num_classes"`
}

// LossOptions are the per-loss settings under loss_function.<name>.
type LossOptions struct {
	Reduction Reduction `yaml:"reduction"`
}

// LossFunction is the loss_function section. It is either a bare name or a
// mapping of name to options.
type LossFunction struct {
	Name    string
	Options map[string]LossOptions
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (lf *LossFunction) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		lf.Name = strings.ToLower(node.Value)
	case yaml.MappingNode:
		lf.Options = make(map[string]LossOptions, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := strings.ToLower(node.Content[i].Value)
			var opts LossOptions
			if val := node.Content[i+1]; val.Kind == yaml.MappingNode {
				if err := val.Decode(&opts); err != nil {
					return errors.Wrapf(err, "loss_function.%s", name)
				}
			}
			if lf.Name == "" {
				lf.Name = name
			}
			lf.Options[name] = opts
		}
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "line %d: loss_function must be a name or a mapping", node.Line)
	}
	return nil
}

// Params is the configuration shared by the losses. A nil *Params means no
// configuration; each loss documents its defaults for that case.
type Params struct {
	Weights       Weights      `yaml:"weights"`
	Model         ModelConfig  `yaml:"model"`
	LossFunction  LossFunction `yaml:"loss_function"`
	ScalingFactor *float64     `yaml:"scaling_factor"`
}

// NumClasses returns model.num_classes, or the class list length when unset.
func (p *Params) NumClasses() int {
	if p.Model.NumClasses > 0 {
		return p.Model.NumClasses
	}
	return len(p.Model.ClassList)
}

// Scaling returns scaling_factor, 1 when unset.
func (p *Params) Scaling() float64 {
	if p.ScalingFactor == nil {
		return 1
	}
	return *p.ScalingFactor
}

// ReductionFor returns loss_function.<name>.reduction, or mean when the
// loss has no options.
func (p *Params) ReductionFor(name string) Reduction {
	if opts, ok := p.LossFunction.Options[name]; ok {
		return opts.Reduction
	}
	return ReductionMean
}

// Validate checks that the sections agree with each other.
func (p *Params) Validate() error {
	if n := len(p.Model.ClassList); n > 0 && p.Model.NumClasses > 0 && n != p.Model.NumClasses {
		return errors.Wrapf(ErrInvalidConfiguration, "model.num_classes is %d but model.class_list has %d entries", p.Model.NumClasses, n)
	}
	if p.Weights != nil {
		if n := p.NumClasses(); n > 0 && len(p.Weights) != n {
			return errors.Wrapf(ErrInvalidConfiguration, "expected %d weights, got %d", n, len(p.Weights))
		}
		if dup := lo.FindDuplicatesBy(p.Weights, func(cw ClassWeight) int { return cw.Class }); len(dup) > 0 {
			return errors.Wrapf(ErrInvalidConfiguration, "weight for class %d given more than once", dup[0].Class)
		}
	}
	if p.ScalingFactor != nil && (math.IsNaN(*p.ScalingFactor) || math.IsInf(*p.ScalingFactor, 0)) {
		return errors.Wrap(ErrInvalidConfiguration, "scaling_factor must be finite")
	}
	return nil
}

// ParseParams decodes and validates a YAML configuration.
func ParseParams(data []byte) (*Params, error) {
	p := &Params{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "decoding params")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadParams reads a YAML configuration file.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	p, err := ParseParams(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return p, nil
}
