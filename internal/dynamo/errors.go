package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStepRejected is returned by adaptive integrators when the local error
	// exceeds tolerance; the caller retries with the suggested step.
	ErrStepRejected = errors.New("dynamo: step rejected (error above tolerance)")

	// ErrTerminate ends a run cleanly at a terminal event.
	ErrTerminate = errors.New("dynamo: terminal event reached")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Terminate builds a clean stop for a guard, keeping the reason.
func Terminate(reason string) error {
	return fmt.Errorf("%w: %s", ErrTerminate, reason)
}
