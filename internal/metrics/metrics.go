package metrics

import (
	"math"
)

// Metric folds a sampled series into one number.
type Metric interface {
	Name() string
	Observe(t, v float64)
	Value() float64
	Reset()
}

type Final struct {
	name  string
	value float64
	seen  bool
}

func NewFinal(name string) *Final { return &Final{name: name} }

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(t, v float64) {
	f.value = v
	f.seen = true
}

func (f *Final) Value() float64 {
	if !f.seen {
		return math.NaN()
	}
	return f.value
}

func (f *Final) Reset() { *f = Final{name: f.name} }

// Extremum tracks the largest (or smallest) sample.
type Extremum struct {
	name    string
	minimum bool
	value   float64
	samples int
}

func NewMax(name string) *Extremum { return &Extremum{name: name} }
func NewMin(name string) *Extremum { return &Extremum{name: name, minimum: true} }

func (e *Extremum) Name() string { return e.name }

func (e *Extremum) Observe(t, v float64) {
	if e.samples == 0 || (e.minimum && v < e.value) || (!e.minimum && v > e.value) {
		e.value = v
	}
	e.samples++
}

func (e *Extremum) Value() float64 {
	if e.samples == 0 {
		return math.NaN()
	}
	return e.value
}

func (e *Extremum) Reset() {
	e.value = 0
	e.samples = 0
}

// Integral is the trapezoidal integral of the series over time.
type Integral struct {
	name   string
	scale  float64
	total  float64
	lastT  float64
	lastV  float64
	primed bool
}

func NewIntegral(name string, scale float64) *Integral {
	return &Integral{name: name, scale: scale}
}

func (i *Integral) Name() string { return i.name }

func (i *Integral) Observe(t, v float64) {
	if i.primed {
		i.total += 0.5 * (v + i.lastV) * (t - i.lastT)
	}
	i.lastT, i.lastV, i.primed = t, v, true
}

func (i *Integral) Value() float64 { return i.total * i.scale }

func (i *Integral) Reset() { *i = Integral{name: i.name, scale: i.scale} }

// TimeAbove accumulates the time spent strictly above a threshold, counting
// each interval by its starting sample.
type TimeAbove struct {
	name      string
	threshold float64
	total     float64
	lastT     float64
	above     bool
	primed    bool
}

func NewTimeAbove(name string, threshold float64) *TimeAbove {
	return &TimeAbove{name: name, threshold: threshold}
}

func (a *TimeAbove) Name() string { return a.name }

func (a *TimeAbove) Observe(t, v float64) {
	if a.primed && a.above {
		a.total += t - a.lastT
	}
	a.lastT, a.above, a.primed = t, v > a.threshold, true
}

func (a *TimeAbove) Value() float64 { return a.total }

func (a *TimeAbove) Reset() { *a = TimeAbove{name: a.name, threshold: a.threshold} }

// Feed runs every sample of a series through m.
func Feed(m Metric, times, values []float64) float64 {
	m.Reset()
	for i := range values {
		if i < len(times) {
			m.Observe(times[i], values[i])
		}
	}
	return m.Value()
}
