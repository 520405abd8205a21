package integrators

import "github.com/san-kum/cellsim/internal/dynamo"

// tableau is an explicit Runge-Kutta scheme in Butcher form. Row i of a
// weights the slopes of stages 0..i-1; c[i] is the stage time as a fraction
// of the step.
type tableau struct {
	c []float64
	a [][]float64
	b []float64
}

func (tb tableau) stages() int { return len(tb.c) }

var (
	eulerTableau = tableau{
		c: []float64{0},
		a: [][]float64{{}},
		b: []float64{1},
	}

	classicTableau = tableau{
		c: []float64{0, 0.5, 0.5, 1},
		a: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
	}

	// Dormand-Prince 5(4). The last stage is evaluated at the fifth-order
	// solution so the embedded fourth-order weights can reuse it.
	dopriTableau = tableau{
		c: []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
		a: [][]float64{
			{},
			{1.0 / 5},
			{3.0 / 40, 9.0 / 40},
			{44.0 / 45, -56.0 / 15, 32.0 / 9},
			{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
			{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
			{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
		},
		b: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
	}

	dopriEmbedded = []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// slopes holds the stage derivatives of one step. Buffers are reused across
// steps of the same state dimension, so a slopes value belongs to one run.
type slopes struct {
	tb    tableau
	k     []dynamo.State
	stage dynamo.State
}

func newSlopes(tb tableau) *slopes {
	return &slopes{tb: tb, k: make([]dynamo.State, tb.stages())}
}

func (s *slopes) resize(n int) {
	if len(s.stage) == n {
		return
	}
	for i := range s.k {
		s.k[i] = make(dynamo.State, n)
	}
	s.stage = make(dynamo.State, n)
}

// eval fills every stage slope for a step of size dt from x at t.
func (s *slopes) eval(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	s.resize(len(x))
	for i, row := range s.tb.a {
		at := x
		if len(row) > 0 {
			for j := range x {
				acc := 0.0
				for m, w := range row {
					acc += w * s.k[m][j]
				}
				s.stage[j] = x[j] + dt*acc
			}
			at = s.stage
		}
		copy(s.k[i], dyn.Derive(at, u, t+s.tb.c[i]*dt))
	}
}

// combine returns x + dt * sum(w[i] * k[i]) as a fresh state.
func (s *slopes) combine(x dynamo.State, dt float64, w []float64) dynamo.State {
	out := make(dynamo.State, len(x))
	for j := range x {
		acc := 0.0
		for i, wi := range w {
			if wi != 0 {
				acc += wi * s.k[i][j]
			}
		}
		out[j] = x[j] + dt*acc
	}
	return out
}
