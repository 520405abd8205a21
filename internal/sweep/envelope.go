package sweep

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/solver"
)

// Grid enumerates the cartesian product of control values.
type Grid struct {
	keys   []string
	ranges [][]float64
}

func NewGrid(keys []string, ranges [][]float64) (*Grid, error) {
	if len(keys) != len(ranges) {
		return nil, fmt.Errorf("grid: %d keys for %d ranges", len(keys), len(ranges))
	}
	for i, k := range keys {
		if _, ok := battery.LookupControl(k); !ok {
			return nil, fmt.Errorf("grid: unknown control %q", k)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("grid: empty range for %s", k)
		}
	}
	return &Grid{keys: keys, ranges: ranges}, nil
}

// Points returns every combination, last key varying fastest.
func (g *Grid) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, map[string]float64{}, &out)
	return out
}

func (g *Grid) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.keys) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}
	for _, v := range g.ranges[depth] {
		current[g.keys[depth]] = v
		g.collect(depth+1, current, out)
	}
	delete(current, g.keys[depth])
}

// Envelope searches, for each value of an optional second control, the
// highest charge current that is safe along with every lower candidate.
type Envelope struct {
	Base       battery.Parameters
	Currents   []float64
	Axis       string
	AxisValues []float64
	Workers    int
}

// Bound is the envelope at one axis value. Limit holds the reasons at the
// first unsafe current, if any.
type Bound struct {
	AxisValue      float64  `json:"axis_value"`
	MaxSafeCurrent float64  `json:"max_safe_current"`
	Found          bool     `json:"found"`
	Limit          []string `json:"limit,omitempty"`
	LimitCurrent   float64  `json:"limit_current,omitempty"`
}

func (e Envelope) grid() (*Grid, error) {
	currents := append([]float64(nil), e.Currents...)
	sort.Float64s(currents)
	if e.Axis == "" {
		return NewGrid([]string{battery.KeyChargeCurrent}, [][]float64{currents})
	}
	return NewGrid([]string{e.Axis, battery.KeyChargeCurrent}, [][]float64{e.AxisValues, currents})
}

func (e Envelope) Search(ctx context.Context, sim solver.Simulator) ([]Bound, error) {
	g, err := e.grid()
	if err != nil {
		return nil, err
	}
	points := g.Points()
	params := make([]battery.Parameters, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		p := e.Base
		for k, v := range pt {
			p = p.With(k, v)
		}
		params[i] = p
		labels[i] = fmt.Sprintf("I=%gA", pt[battery.KeyChargeCurrent])
		if e.Axis != "" {
			labels[i] = fmt.Sprintf("%s=%g %s", e.Axis, pt[e.Axis], labels[i])
		}
	}

	outcomes, err := evaluateAll(ctx, sim, labels, params, e.Workers)
	if err != nil {
		return nil, err
	}

	axis := []float64{0}
	if e.Axis != "" {
		axis = e.AxisValues
	}
	perAxis := len(e.Currents)
	bounds := make([]Bound, len(axis))
	for i, av := range axis {
		b := Bound{AxisValue: av}
		for _, o := range outcomes[i*perAxis : (i+1)*perAxis] {
			if !o.Safe() {
				b.Limit = o.Reasons()
				b.LimitCurrent = o.Params.ChargeCurrent
				break
			}
			b.Found = true
			b.MaxSafeCurrent = o.Params.ChargeCurrent
		}
		bounds[i] = b
	}
	return bounds, nil
}
