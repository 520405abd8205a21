package battery

import (
	"errors"
	"fmt"
)

// CrashMessage is reported when the external solver gives up without a usable reason.
const CrashMessage = "SOLVER CRASH: Physical limits exceeded (Mass transport or Stoichiometric saturation)."

// SolverFailure is the terminal token for a simulation that could not complete.
// It is deterministic for a given parameter tuple, so callers may cache it.
type SolverFailure struct {
	Message string
	Cause   error
}

func NewSolverFailure(format string, args ...any) *SolverFailure {
	return &SolverFailure{Message: fmt.Sprintf(format, args...)}
}

func (f *SolverFailure) Error() string {
	return f.Message
}

func (f *SolverFailure) Unwrap() error {
	return f.Cause
}

// AsSolverFailure reports whether err carries a SolverFailure.
func AsSolverFailure(err error) (*SolverFailure, bool) {
	var f *SolverFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Crash wraps a backend-specific reason in the fixed crash message.
func Crash(cause error) *SolverFailure {
	return &SolverFailure{Message: CrashMessage, Cause: cause}
}
