package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/cellsim/internal/dynamo"
)

// Names lists the steppers accepted by New.
func Names() []string {
	return []string{"rk4", "rk45", "euler"}
}

// New returns a fresh integrator by name. Integrators hold scratch buffers,
// so each run needs its own.
func New(name string) (dynamo.Integrator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rk4":
		return NewRK4(), nil
	case "rk45", "dopri", "dormand-prince":
		return NewRK45(), nil
	case "euler":
		return NewEuler(), nil
	default:
		return nil, fmt.Errorf("unknown integrator %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

// IsAdaptive reports whether the integrator supports error-controlled steps.
func IsAdaptive(integ dynamo.Integrator) bool {
	_, ok := integ.(dynamo.AdaptiveIntegrator)
	return ok
}
