package integrators

import "github.com/san-kum/cellsim/internal/dynamo"

// Euler is first order and only useful as a cross-check of the other steppers.
type Euler struct {
	slopes *slopes
}

func NewEuler() *Euler {
	return &Euler{slopes: newSlopes(eulerTableau)}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	e.slopes.eval(dyn, x, u, t, dt)
	return e.slopes.combine(x, dt, eulerTableau.b)
}
