package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// timeEps absorbs accumulated floating point error in t.
const timeEps = 1e-9

type Simulator struct {
	dyn        System
	integrator Integrator
	controller Controller
	observers  []Observer
	guards     []Guard
}

func New(dyn System, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		observers:  make([]Observer, 0),
		guards:     make([]Guard, 0),
	}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) AddGuard(g Guard)       { s.guards = append(s.guards, g) }

// Run integrates from x0 over [0, cfg.Duration]. Samples are recorded at t=0,
// every cfg.SampleEvery seconds, at the end of the horizon, and at the step
// where a guard terminates the run. On error the partial result is returned
// alongside it.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: state has %d entries, system wants %d",
			ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	capacity := int(cfg.Duration/cfg.Dt) + 1
	if cfg.SampleEvery > 0 {
		capacity = int(cfg.Duration/cfg.SampleEvery) + 2
	}
	result := &Result{
		States:   make([]State, 0, capacity),
		Controls: make([]Control, 0, capacity),
		Times:    make([]float64, 0, capacity),
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	nextSample := cfg.SampleEvery

	s.record(result, x, s.controller.Compute(x, t), t)

	for step := 0; t < cfg.Duration-timeEps; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)

		h := dt
		if cfg.Adaptive && cfg.MaxDt > 0 {
			h = math.Min(h, cfg.MaxDt)
		}
		h = math.Min(h, cfg.Duration-t)
		if cfg.SampleEvery > 0 {
			h = math.Min(h, nextSample-t)
		}

		var newX State
		if cfg.Adaptive {
			var next float64
			var err error
			newX, h, next, err = s.adaptiveStep(x, u, t, h, cfg)
			if err != nil {
				return result, &SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
			}
			dt = next
		} else {
			newX = s.integrator.Step(s.dyn, x, u, t, h)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: step, Time: t + h, State: newX, Wrapped: ErrInvalidState}
		}

		x = newX
		t += h
		result.StepsTaken++

		due := cfg.SampleEvery <= 0 || t >= cfg.Duration-timeEps
		if cfg.SampleEvery > 0 && math.Abs(t-nextSample) < timeEps {
			t = nextSample
			due = true
		}

		for _, g := range s.guards {
			if err := g(x, u, t); err != nil {
				if errors.Is(err, ErrTerminate) {
					s.record(result, x, u, t)
					result.StopReason = err.Error()
					return result, nil
				}
				return result, &SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
			}
		}

		if due {
			s.record(result, x, u, t)
			for cfg.SampleEvery > 0 && nextSample <= t+timeEps {
				nextSample += cfg.SampleEvery
			}
		}
	}

	return result, nil
}

func (s *Simulator) record(result *Result, x State, u Control, t float64) {
	result.States = append(result.States, x.Clone())
	result.Controls = append(result.Controls, u)
	result.Times = append(result.Times, t)
	for _, obs := range s.observers {
		obs.OnSample(x, u, t)
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must not be negative, got %f", cfg.SampleEvery)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	return nil
}

// adaptiveStep returns the accepted state, the step actually taken and the
// suggested next step.
func (s *Simulator) adaptiveStep(x State, u Control, t, h float64, cfg Config) (State, float64, float64, error) {
	minDt := cfg.MinDt
	if minDt <= 0 {
		minDt = 1e-9
	}

	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		for {
			newX, next, err := adaptive.StepAdaptive(s.dyn, x, u, t, h, cfg.Tolerance)
			if errors.Is(err, ErrStepRejected) {
				h = next
				if h < minDt {
					return nil, 0, 0, ErrStepTooSmall
				}
				continue
			}
			if err != nil {
				return nil, 0, 0, err
			}
			if cfg.MaxDt > 0 {
				next = math.Min(next, cfg.MaxDt)
			}
			return newX, h, next, nil
		}
	}

	for {
		x1 := s.integrator.Step(s.dyn, x, u, t, h)
		xHalf := s.integrator.Step(s.dyn, x, u, t, h/2)
		x2 := s.integrator.Step(s.dyn, xHalf, u, t+h/2, h/2)

		errNorm := x1.Sub(x2).Norm()
		if errNorm > cfg.Tolerance {
			if h/2 < minDt {
				return nil, 0, 0, ErrStepTooSmall
			}
			h /= 2
			continue
		}

		next := h
		if errNorm < cfg.Tolerance/10 {
			next = h * 2
		}
		if cfg.MaxDt > 0 {
			next = math.Min(next, cfg.MaxDt)
		}
		return x2, h, next, nil
	}
}
