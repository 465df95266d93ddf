package evolve

import (
	"errors"
	"fmt"
)

var (
	// ErrUnstable indicates an evolved field containing NaN or Inf.
	ErrUnstable = errors.New("evolve: evolved field is not finite")

	// ErrTooFewSamples indicates a transfer table too coarse to spline.
	ErrTooFewSamples = errors.New("evolve: too few transfer function samples")

	// ErrNoEtas indicates an empty evolution schedule.
	ErrNoEtas = errors.New("evolve: no conformal times requested")
)

// StepError wraps an error with the evolution step it occurred at.
type StepError struct {
	Step    int
	Eta     float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (eta=%g): %v", e.Step, e.Eta, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
