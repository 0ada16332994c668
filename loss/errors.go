package loss

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned when params disagree with the tensors they describe.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput is returned when tensor values violate a loss precondition.
	ErrInvalidInput = errors.New("invalid input")
	// ErrShapeMismatch is returned when output and target shapes cannot be paired.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnknownLoss is returned by Lookup for unregistered names.
	ErrUnknownLoss = errors.New("unknown loss function")
)
