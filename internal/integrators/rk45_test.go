package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/cellsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, nil, 0, 0.1, 1e-3)
	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0.1 {
		t.Errorf("accepted step should grow, got dt %f", newDt)
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	_, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, nil, 0, 10, 1e-10)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if newDt >= 10 || newDt <= 0 {
		t.Errorf("suggested retry step should shrink, got %f", newDt)
	}
}

func TestRK45_DrivesSimulator(t *testing.T) {
	sim := dynamo.New(&relaxation{tau: 20}, NewRK45(), dynamo.Constant(1.0))
	cfg := dynamo.Config{
		Dt:          1,
		Duration:    100,
		Tolerance:   1e-8,
		MinDt:       1e-6,
		MaxDt:       10,
		Adaptive:    true,
		SampleEvery: 5,
	}

	result, err := sim.Run(context.Background(), dynamo.State{0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Times) != 21 {
		t.Fatalf("expected 21 samples, got %d", len(result.Times))
	}
	want := 1 - math.Exp(-100.0/20)
	if got := result.Final()[0]; math.Abs(got-want) > 1e-5 {
		t.Errorf("x(100) = %.9f, want %.9f", got, want)
	}
}
