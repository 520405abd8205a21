package battery

import (
	"errors"
	"fmt"
	"math"
)

type SeriesName string

// Series names follow the simulation library's variable names so the external
// backend can return them verbatim.
const (
	SeriesTerminalVoltage             SeriesName = "Terminal voltage [V]"
	SeriesCellTemperature             SeriesName = "X-averaged cell temperature [K]"
	SeriesElectrolyteConcentration    SeriesName = "X-averaged electrolyte concentration [mol.m-3]"
	SeriesInterfacialCurrent          SeriesName = "X-averaged negative electrode interfacial current density [A.m-2]"
	SeriesAnodePotential              SeriesName = "Negative electrode surface potential difference at separator interface [V]"
	SeriesCathodePotential            SeriesName = "X-averaged positive electrode potential [V]"
	SeriesAnodeSurfaceConcentration   SeriesName = "X-averaged negative particle surface concentration [mol.m-3]"
	SeriesCathodeSurfaceConcentration SeriesName = "X-averaged positive particle surface concentration [mol.m-3]"
)

var seriesNames = []SeriesName{
	SeriesTerminalVoltage,
	SeriesCellTemperature,
	SeriesElectrolyteConcentration,
	SeriesInterfacialCurrent,
	SeriesAnodePotential,
	SeriesCathodePotential,
	SeriesAnodeSurfaceConcentration,
	SeriesCathodeSurfaceConcentration,
}

// SeriesNames returns every series a bundle carries, in grid order.
func SeriesNames() []SeriesName {
	out := make([]SeriesName, len(seriesNames))
	copy(out, seriesNames)
	return out
}

var ErrInvalidBundle = errors.New("battery: invalid series bundle")

// SeriesBundle is an immutable set of series on a shared time base.
type SeriesBundle struct {
	time   []float64
	series map[SeriesName][]float64
}

// NewSeriesBundle copies its inputs. Every name in SeriesNames must be present
// with one value per time sample, and time must be non-decreasing.
func NewSeriesBundle(time []float64, series map[SeriesName][]float64) (*SeriesBundle, error) {
	if len(time) == 0 {
		return nil, fmt.Errorf("%w: empty time base", ErrInvalidBundle)
	}
	for i := 1; i < len(time); i++ {
		if time[i] < time[i-1] {
			return nil, fmt.Errorf("%w: time decreases at sample %d", ErrInvalidBundle, i)
		}
	}
	b := &SeriesBundle{
		time:   cloneFloats(time),
		series: make(map[SeriesName][]float64, len(seriesNames)),
	}
	for _, name := range seriesNames {
		vals, ok := series[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing series %q", ErrInvalidBundle, name)
		}
		if len(vals) != len(time) {
			return nil, fmt.Errorf("%w: series %q has %d samples, time has %d", ErrInvalidBundle, name, len(vals), len(time))
		}
		b.series[name] = cloneFloats(vals)
	}
	return b, nil
}

func (b *SeriesBundle) Len() int {
	return len(b.time)
}

// Time returns the sample times in seconds.
func (b *SeriesBundle) Time() []float64 {
	return cloneFloats(b.time)
}

func (b *SeriesBundle) Minutes() []float64 {
	out := make([]float64, len(b.time))
	for i, t := range b.time {
		out[i] = t / 60
	}
	return out
}

// Values returns a copy of the named series, or nil if the bundle lacks it.
func (b *SeriesBundle) Values(name SeriesName) []float64 {
	vals, ok := b.series[name]
	if !ok {
		return nil
	}
	return cloneFloats(vals)
}

// Final returns the last sample of the named series (NaN if absent).
func (b *SeriesBundle) Final(name SeriesName) float64 {
	vals, ok := b.series[name]
	if !ok || len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

// Max returns the largest sample of the named series (NaN if absent).
func (b *SeriesBundle) Max(name SeriesName) float64 {
	vals, ok := b.series[name]
	if !ok || len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// EndTime is the time of the last sample. It is below HorizonSeconds when the
// solve stopped early on the voltage cut-off.
func (b *SeriesBundle) EndTime() float64 {
	return b.time[len(b.time)-1]
}

func cloneFloats(s []float64) []float64 {
	c := make([]float64, len(s))
	copy(c, s)
	return c
}

// Panel is one cell of the 2×4 plot grid.
type Panel struct {
	Title  string
	Series SeriesName
	YLabel string
}

var panels = []Panel{
	{"Voltage Profile", SeriesTerminalVoltage, "Voltage [V]"},
	{"Thermal Response", SeriesCellTemperature, "Temp [K]"},
	{"Electrolyte Conc.", SeriesElectrolyteConcentration, "Conc [mol/m³]"},
	{"Interfacial Current", SeriesInterfacialCurrent, "Current [A/m²]"},
	{"Anode Potential", SeriesAnodePotential, "Potential [V]"},
	{"Cathode Potential", SeriesCathodePotential, "Potential [V]"},
	{"Anode Surf. Conc.", SeriesAnodeSurfaceConcentration, "Conc [mol/m³]"},
	{"Cathode Surf. Conc.", SeriesCathodeSurfaceConcentration, "Conc [mol/m³]"},
}

const (
	GridRows = 2
	GridCols = 4
	// TimeAxisLabel labels the shared x axis of every panel.
	TimeAxisLabel = "Time [min]"
)

// Panels returns the grid in row-major order.
func Panels() []Panel {
	out := make([]Panel, len(panels))
	copy(out, panels)
	return out
}
