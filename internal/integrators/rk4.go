package integrators

import "github.com/san-kum/cellsim/internal/dynamo"

// RK4 is the classic fourth-order scheme and the default stepper for the
// cell model.
type RK4 struct {
	slopes *slopes
}

func NewRK4() *RK4 {
	return &RK4{slopes: newSlopes(classicTableau)}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.slopes.eval(dyn, x, u, t, dt)
	return r.slopes.combine(x, dt, classicTableau.b)
}
