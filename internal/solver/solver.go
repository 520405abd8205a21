// Package solver turns a battery.Parameters tuple into a SeriesBundle.
//
// Two backends implement [Simulator]:
//
//   - [External] runs a configured command that wraps the full
//     electrochemical library and speaks JSON over stdin/stdout
//   - [Surrogate] integrates a built-in reduced-order cell model with the
//     dynamo stepping loop, so the dashboard works without the library
//
// Both report a run that cannot complete as a *battery.SolverFailure. Any
// other error is an infrastructure problem (missing command, cancelled
// context) and is not a property of the parameters.
package solver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
)

const (
	BackendSurrogate = "surrogate"
	BackendExternal  = "external"
)

// Simulator is the simulation invocation boundary.
type Simulator interface {
	Simulate(ctx context.Context, p battery.Parameters) (*battery.SeriesBundle, error)
	Name() string
}

type Options struct {
	Backend string
	// Command and Args start the external backend.
	Command []string
	// Timeout bounds one external invocation. Zero lets it run to completion.
	Timeout time.Duration

	Integrator string
	Dt         float64
	// SampleEvery is the output interval of the surrogate in seconds.
	SampleEvery float64
	Tolerance   float64
	InitialSOC  float64

	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Backend:     BackendSurrogate,
		Integrator:  "rk4",
		Dt:          1.0,
		SampleEvery: 5.0,
		Tolerance:   1e-7,
		InitialSOC:  0.2,
	}
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendSurrogate, BackendExternal}
}

// New builds the backend named by opts.Backend.
func New(opts Options) (Simulator, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendSurrogate:
		return NewSurrogate(opts)
	case BackendExternal:
		return NewExternal(opts)
	default:
		return nil, fmt.Errorf("unknown solver backend %q (want one of %s)",
			opts.Backend, strings.Join(Backends(), ", "))
	}
}
