package integrators

import (
	"math"

	"github.com/san-kum/cellsim/internal/dynamo"
)

// RK45 is the Dormand-Prince embedded pair. StepAdaptive reports
// dynamo.ErrStepRejected when the error estimate exceeds tol, with the
// suggested retry step.
type RK45 struct {
	slopes *slopes
	// shrink and growth bounds on the step ratio, and the safety factor
	// applied to the ideal ratio.
	safety, minRatio, maxRatio float64
}

func NewRK45() *RK45 {
	return &RK45{
		slopes:   newSlopes(dopriTableau),
		safety:   0.9,
		minRatio: 0.2,
		maxRatio: 10.0,
	}
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next, _, _ := r.StepAdaptive(dyn, x, u, t, dt, 1e-6)
	return next
}

func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	r.slopes.eval(dyn, x, u, t, dt)
	next := r.slopes.combine(x, dt, dopriTableau.b)

	k := r.slopes.k
	worst := 0.0
	for j := range x {
		diff := 0.0
		for i, b := range dopriTableau.b {
			diff += (b - dopriEmbedded[i]) * k[i][j]
		}
		// relative per component: concentrations are ~1e4, potentials ~1
		scale := math.Abs(x[j]) + math.Abs(dt*k[0][j]) + 1e-10
		worst = math.Max(worst, math.Abs(dt*diff)/scale)
	}

	ratio := worst / tol
	if ratio > 1 {
		shrink := math.Max(r.minRatio, r.safety*math.Pow(ratio, -0.25))
		return next, dt * shrink, dynamo.ErrStepRejected
	}

	grow := r.maxRatio
	if ratio > 0 {
		grow = math.Min(r.maxRatio, r.safety*math.Pow(ratio, -0.2))
	}
	return next, dt * grow, nil
}
