// Package sweep runs batches of simulations: one-control sweeps, the safe
// charge-current envelope and scripted YAML scenarios.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/safety"
	"github.com/san-kum/cellsim/internal/solver"
)

var ErrEmptySweep = errors.New("sweep: no points to evaluate")

// Outcome is one evaluated parameter set. Exactly one of Summary or Failure
// is set.
type Outcome struct {
	Label   string                `json:"label,omitempty"`
	Params  battery.Parameters    `json:"parameters"`
	Summary *metrics.Summary      `json:"summary,omitempty"`
	Verdict *safety.Verdict       `json:"verdict,omitempty"`
	Failure string                `json:"failure,omitempty"`
	Bundle  *battery.SeriesBundle `json:"-"`
}

// Safe reports whether the run completed and no rule fired.
func (o Outcome) Safe() bool {
	return o.Failure == "" && o.Verdict != nil && o.Verdict.Safe
}

// Reasons lists why the outcome is unsafe.
func (o Outcome) Reasons() []string {
	if o.Failure != "" {
		return []string{o.Failure}
	}
	if o.Verdict == nil {
		return nil
	}
	return o.Verdict.Reasons
}

// Evaluate runs one simulation and assesses it. A SolverFailure becomes part
// of the outcome; other errors are returned.
func Evaluate(ctx context.Context, sim solver.Simulator, label string, p battery.Parameters) (Outcome, error) {
	out := Outcome{Label: label, Params: p}
	bundle, err := sim.Simulate(ctx, p)
	if err != nil {
		if f, ok := battery.AsSolverFailure(err); ok {
			out.Failure = f.Message
			return out, nil
		}
		return out, err
	}
	s := metrics.Summarize(bundle, p)
	v := s.Verdict()
	out.Summary = &s
	out.Verdict = &v
	out.Bundle = bundle
	return out, nil
}

// Sweep varies one control linearly between Min and Max.
type Sweep struct {
	Base  battery.Parameters
	Key   string
	Min   float64
	Max   float64
	Steps int
	// Workers bounds concurrent simulations; zero means GOMAXPROCS.
	Workers int
}

func (s Sweep) Values() ([]float64, error) {
	if _, ok := battery.LookupControl(s.Key); !ok {
		return nil, fmt.Errorf("sweep: unknown control %q", s.Key)
	}
	if s.Steps < 1 {
		return nil, ErrEmptySweep
	}
	if s.Steps == 1 {
		return []float64{s.Min}, nil
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	values := make([]float64, s.Steps)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	values[len(values)-1] = s.Max
	return values, nil
}

// Run evaluates every sweep point. Results keep the order of Values.
func Run(ctx context.Context, sim solver.Simulator, s Sweep) ([]Outcome, error) {
	values, err := s.Values()
	if err != nil {
		return nil, err
	}
	params := make([]battery.Parameters, len(values))
	labels := make([]string, len(values))
	for i, v := range values {
		params[i] = s.Base.With(s.Key, v)
		labels[i] = fmt.Sprintf("%s=%g", s.Key, v)
	}
	return evaluateAll(ctx, sim, labels, params, s.Workers)
}

func evaluateAll(ctx context.Context, sim solver.Simulator, labels []string, params []battery.Parameters, workers int) ([]Outcome, error) {
	if len(params) == 0 {
		return nil, ErrEmptySweep
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Outcome, len(params))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range params {
		g.Go(func() error {
			o, err := Evaluate(ctx, sim, labels[i], params[i])
			if err != nil {
				return fmt.Errorf("%s: %w", labels[i], err)
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
