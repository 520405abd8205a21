package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
)

type decay struct{}

func (d *decay) Derive(x State, u Control, t float64) State { return State{-x[0]} }
func (d *decay) StateDim() int                              { return 1 }
func (d *decay) ControlDim() int                            { return 0 }

type ramp struct{}

func (r *ramp) Derive(x State, u Control, t float64) State { return State{u[0]} }
func (r *ramp) StateDim() int                              { return 1 }
func (r *ramp) ControlDim() int                            { return 1 }

type euler struct{}

func (e *euler) Step(dyn System, x State, u Control, t, dt float64) State {
	dx := dyn.Derive(x, u, t)
	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dt*dx[i]
	}
	return out
}

type countingObserver struct{ n int }

func (c *countingObserver) OnSample(State, Control, float64) { c.n++ }

func TestSimulatorRun(t *testing.T) {
	sim := New(&decay{}, &euler{}, Constant())

	cfg := Config{Dt: 0.1, Duration: 1.0}
	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}

	final := result.Final()[0]
	expected := math.Exp(-1.0)
	if math.Abs(final-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, final)
	}
}

func TestSimulatorSampling(t *testing.T) {
	sim := New(&ramp{}, &euler{}, Constant(2.0))
	obs := &countingObserver{}
	sim.AddObserver(obs)

	cfg := Config{Dt: 1, Duration: 900, SampleEvery: 5}
	result, err := sim.Run(context.Background(), State{0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Times) != 181 {
		t.Fatalf("expected 181 samples, got %d", len(result.Times))
	}
	if obs.n != len(result.Times) {
		t.Errorf("observer saw %d samples, want %d", obs.n, len(result.Times))
	}
	for i, tm := range result.Times {
		if math.Abs(tm-float64(i)*5) > 1e-9 {
			t.Fatalf("sample %d at t=%v, want %v", i, tm, float64(i)*5)
		}
	}
	if result.StepsTaken != 900 {
		t.Errorf("expected 900 steps, got %d", result.StepsTaken)
	}
	if got := result.Final()[0]; math.Abs(got-1800) > 1e-6 {
		t.Errorf("final = %v, want 1800", got)
	}
}

func TestSimulatorGuardTerminates(t *testing.T) {
	sim := New(&ramp{}, &euler{}, Constant(1.0))
	sim.AddGuard(func(x State, u Control, t float64) error {
		if x[0] >= 12 {
			return Terminate("limit reached")
		}
		return nil
	})

	result, err := sim.Run(context.Background(), State{0}, Config{Dt: 1, Duration: 100, SampleEvery: 5})
	if err != nil {
		t.Fatalf("guard termination should not be an error: %v", err)
	}
	if result.StopReason == "" {
		t.Error("expected a stop reason")
	}
	last := result.Times[len(result.Times)-1]
	if last != 12 {
		t.Errorf("expected run to end at t=12, got %v", last)
	}
}

func TestSimulatorGuardError(t *testing.T) {
	boom := errors.New("boom")
	sim := New(&ramp{}, &euler{}, Constant(1.0))
	sim.AddGuard(func(x State, u Control, t float64) error {
		if t >= 3 {
			return boom
		}
		return nil
	})

	_, err := sim.Run(context.Background(), State{0}, Config{Dt: 1, Duration: 10})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped guard error, got %v", err)
	}
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Time != 3 {
		t.Errorf("error time = %v, want 3", simErr.Time)
	}
}

type blowup struct{}

func (b *blowup) Derive(x State, u Control, t float64) State { return State{math.Inf(1)} }
func (b *blowup) StateDim() int                              { return 1 }
func (b *blowup) ControlDim() int                            { return 0 }

func TestSimulatorInvalidState(t *testing.T) {
	sim := New(&blowup{}, &euler{}, Constant())
	_, err := sim.Run(context.Background(), State{0}, Config{Dt: 1, Duration: 10, ValidateState: true})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSimulatorAdaptiveFallback(t *testing.T) {
	sim := New(&decay{}, &euler{}, Constant())
	cfg := Config{Dt: 0.1, Duration: 2, Adaptive: true, Tolerance: 1e-4, MinDt: 1e-8, MaxDt: 0.5}

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got, want := result.Final()[0], math.Exp(-2); math.Abs(got-want) > 1e-2 {
		t.Errorf("final = %v, want ~%v", got, want)
	}
	if math.Abs(result.Times[len(result.Times)-1]-2) > 1e-9 {
		t.Errorf("run should end at the horizon, ended at %v", result.Times[len(result.Times)-1])
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&decay{}, &euler{}, Constant())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative sample interval", Config{Dt: 0.1, Duration: 1, SampleEvery: -1}},
		{"adaptive without tolerance", Config{Dt: 0.1, Duration: 1, Adaptive: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sim.Run(context.Background(), State{1.0}, tt.cfg); err == nil {
				t.Error("expected error for invalid config")
			}
		})
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(&decay{}, &euler{}, Constant())
	_, err := sim.Run(context.Background(), State{1, 2}, DefaultConfig())
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSimulatorContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(&decay{}, &euler{}, Constant())
	result, err := sim.Run(ctx, State{1}, Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial sample, got %d", len(result.States))
	}
}

func TestStateHelpers(t *testing.T) {
	s := State{3, 4}
	if s.Norm() != 5 {
		t.Errorf("Norm = %v, want 5", s.Norm())
	}
	c := s.Clone()
	c[0] = 0
	if s[0] != 3 {
		t.Error("Clone shares storage")
	}
	if (State{math.NaN()}).IsValid() {
		t.Error("NaN state reported valid")
	}
	d := s.Sub(State{1})
	if d[0] != 2 || d[1] != 4 {
		t.Errorf("Sub = %v", d)
	}
}
