package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Observer sees every recorded sample.
type Observer interface {
	OnSample(x State, u Control, t float64)
}

// Guard inspects each accepted state. Returning an error wrapping
// ErrTerminate ends the run cleanly; any other error aborts it.
type Guard func(x State, u Control, t float64) error

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
	// SampleEvery is the recording interval; zero records every step.
	SampleEvery float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0,
		Duration:      900.0,
		Tolerance:     1e-6,
		MaxDt:         10.0,
		MinDt:         1e-6,
		Adaptive:      false,
		ValidateState: true,
		SampleEvery:   5.0,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	StepsTaken int
	// StopReason is set when a guard ended the run before Duration.
	StopReason string
}

// Final returns the last recorded state.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// constant is a Controller returning a fixed input.
type constant struct {
	u Control
}

// Constant applies the same input vector at every step.
func Constant(u ...float64) Controller {
	return constant{u: Control(u)}
}

func (c constant) Compute(State, float64) Control {
	out := make(Control, len(c.u))
	copy(out, c.u)
	return out
}
