package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/config"
	"github.com/san-kum/cellsim/internal/safety"
	"github.com/san-kum/cellsim/internal/solver"
)

// linearCell heats by 3 °C per amp above ambient and crashes above 14 A.
type linearCell struct {
	calls atomic.Int32
	infra error
}

func (c *linearCell) Name() string { return "linear" }

func (c *linearCell) Simulate(ctx context.Context, p battery.Parameters) (*battery.SeriesBundle, error) {
	c.calls.Add(1)
	if c.infra != nil {
		return nil, c.infra
	}
	if p.ChargeCurrent > 14 {
		return nil, battery.Crash(errors.New("stoichiometric saturation"))
	}
	peak := p.AmbientKelvin() + 3*p.ChargeCurrent
	series := make(map[battery.SeriesName][]float64)
	for _, name := range battery.SeriesNames() {
		series[name] = []float64{0.1, 0.1}
	}
	series[battery.SeriesTerminalVoltage] = []float64{3.6, 4.0}
	series[battery.SeriesCellTemperature] = []float64{p.AmbientKelvin(), peak}
	return battery.NewSeriesBundle([]float64{0, battery.HorizonSeconds}, series)
}

func TestSweepValues(t *testing.T) {
	s := Sweep{Key: battery.KeyChargeCurrent, Min: 1, Max: 3, Steps: 5}
	values, err := s.Values()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2, 2.5, 3}, values)

	s.Steps = 1
	values, err = s.Values()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, values)

	s.Steps = 0
	_, err = s.Values()
	assert.ErrorIs(t, err, ErrEmptySweep)

	s = Sweep{Key: "voltage", Min: 1, Max: 2, Steps: 2}
	_, err = s.Values()
	assert.Error(t, err)
}

func TestSweepRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	sim := &linearCell{}
	out, err := Run(context.Background(), sim, Sweep{
		Base:    battery.DefaultParameters(),
		Key:     battery.KeyChargeCurrent,
		Min:     2,
		Max:     15,
		Steps:   14,
		Workers: 3,
	})
	require.NoError(t, err)
	require.Len(t, out, 14)
	assert.EqualValues(t, 14, sim.calls.Load())

	for i, o := range out {
		current := 2 + float64(i)
		assert.InDelta(t, current, o.Params.ChargeCurrent, 1e-12, "order preserved")
		switch {
		case current > 14:
			assert.Equal(t, battery.CrashMessage, o.Failure)
			assert.Nil(t, o.Summary)
			assert.False(t, o.Safe())
			assert.Equal(t, []string{battery.CrashMessage}, o.Reasons())
		case 25+3*current > safety.MaxCellTemperature:
			require.NotNil(t, o.Verdict)
			assert.False(t, o.Safe(), "current %g", current)
			assert.True(t, o.Verdict.Has(safety.RuleThermal))
		default:
			assert.True(t, o.Safe(), "current %g", current)
			assert.Empty(t, o.Reasons())
		}
	}
}

func TestSweepInfrastructureError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("solver binary missing")
	_, err := Run(context.Background(), &linearCell{infra: boom}, Sweep{
		Base: battery.DefaultParameters(), Key: battery.KeyAmbientTemperature, Min: 0, Max: 40, Steps: 5,
	})
	assert.ErrorIs(t, err, boom)
}

func TestGridPoints(t *testing.T) {
	g, err := NewGrid([]string{battery.KeyAmbientTemperature, battery.KeyChargeCurrent},
		[][]float64{{0, 40}, {1, 2, 3}})
	require.NoError(t, err)

	points := g.Points()
	require.Len(t, points, 6)
	assert.Equal(t, map[string]float64{battery.KeyAmbientTemperature: 0, battery.KeyChargeCurrent: 1}, points[0])
	assert.Equal(t, map[string]float64{battery.KeyAmbientTemperature: 40, battery.KeyChargeCurrent: 3}, points[5])

	_, err = NewGrid([]string{"x"}, [][]float64{{1}})
	assert.Error(t, err)
	_, err = NewGrid([]string{battery.KeyChargeCurrent}, nil)
	assert.Error(t, err)
	_, err = NewGrid([]string{battery.KeyChargeCurrent}, [][]float64{{}})
	assert.Error(t, err)
}

func TestEnvelopeSingleAxis(t *testing.T) {
	env := Envelope{
		Base:     battery.DefaultParameters(),
		Currents: []float64{10, 2, 4, 6, 8},
	}
	bounds, err := env.Search(context.Background(), &linearCell{})
	require.NoError(t, err)
	require.Len(t, bounds, 1)
	assert.True(t, bounds[0].Found)
	assert.Equal(t, 8.0, bounds[0].MaxSafeCurrent)
	assert.Equal(t, 10.0, bounds[0].LimitCurrent)
	require.Len(t, bounds[0].Limit, 1)
	assert.Contains(t, bounds[0].Limit[0], "Thermal Violation")
}

func TestEnvelopeAmbientAxis(t *testing.T) {
	env := Envelope{
		Base:       battery.DefaultParameters(),
		Currents:   []float64{1, 3, 5, 7, 9, 11, 13, 15},
		Axis:       battery.KeyAmbientTemperature,
		AxisValues: []float64{-5, 20, 40, 50},
		Workers:    2,
	}
	bounds, err := env.Search(context.Background(), &linearCell{})
	require.NoError(t, err)
	require.Len(t, bounds, 4)

	// Sub-zero ambient is unsafe at any current.
	assert.False(t, bounds[0].Found)
	assert.Equal(t, 1.0, bounds[0].LimitCurrent)
	assert.Contains(t, bounds[0].Limit, "Sub-zero hazard: High risk of lithium plating.")

	// 20 + 3I stays within the limit up to 9 A.
	assert.True(t, bounds[1].Found)
	assert.Equal(t, 9.0, bounds[1].MaxSafeCurrent)

	assert.Equal(t, 3.0, bounds[2].MaxSafeCurrent)

	assert.False(t, bounds[3].Found)
}

func TestEnvelopeRequiresCurrents(t *testing.T) {
	_, err := Envelope{Base: battery.DefaultParameters()}.Search(context.Background(), &linearCell{})
	assert.Error(t, err)
}

func TestEnvelopeWithSurrogate(t *testing.T) {
	sim, err := solver.NewSurrogate(solver.DefaultOptions())
	require.NoError(t, err)

	bounds, err := Envelope{
		Base:     battery.DefaultParameters(),
		Currents: []float64{1, 4, 7.5, 15},
	}.Search(context.Background(), sim)
	require.NoError(t, err)
	require.Len(t, bounds, 1)
	assert.True(t, bounds[0].Found)
	assert.Equal(t, 7.5, bounds[0].MaxSafeCurrent)
	assert.Equal(t, 15.0, bounds[0].LimitCurrent)
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	body := `name: winter
description: cold weather fast charge
steps:
  - name: baseline
  - name: cold
    preset: cold-start
  - name: lfp fast
    chemistry: Ai2020
    params:
      charge_current: 15
      cooling_coefficient: 40
    save: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "winter", sc.Name)
	require.Len(t, sc.Steps, 3)

	base := config.DefaultConfig().Parameters
	p, err := sc.Steps[1].Parameters(base)
	require.NoError(t, err)
	assert.Equal(t, -5.0, p.AmbientTemperature)

	p, err = sc.Steps[2].Parameters(base)
	require.NoError(t, err)
	assert.Equal(t, battery.Ai2020, p.Chemistry)
	assert.Equal(t, 15.0, p.ChargeCurrent)
	assert.Equal(t, 40.0, p.CoolingCoefficient)
	assert.Equal(t, 100e-6, p.AnodeThickness)
}

func TestLoadScenarioErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadScenario(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("name: nothing\n"), 0644))
	_, err = LoadScenario(empty)
	assert.ErrorIs(t, err, ErrEmptySweep)

	base := config.DefaultConfig().Parameters
	_, err = Step{Preset: "missing"}.Parameters(base)
	assert.Error(t, err)
	_, err = Step{Params: map[string]float64{"voltage": 4}}.Parameters(base)
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	sc := &Scenario{Name: "mixed", Steps: []Step{
		{Name: "nominal"},
		{Name: "hot", Params: map[string]float64{battery.KeyAmbientTemperature: 45}, Save: true},
		{Name: "crash", Params: map[string]float64{battery.KeyChargeCurrent: 15}, Save: true},
	}}

	var saved []string
	out, err := RunScenario(context.Background(), &linearCell{}, sc, config.DefaultConfig().Parameters,
		func(o Outcome) error {
			saved = append(saved, o.Label)
			return nil
		}, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Safe())
	assert.False(t, out[1].Safe())
	assert.Equal(t, battery.CrashMessage, out[2].Failure)
	assert.Equal(t, []string{"hot", "crash"}, saved)
}

func TestRunScenarioStopsOnError(t *testing.T) {
	sc := &Scenario{Steps: []Step{{}, {Preset: "missing"}, {}}}
	out, err := RunScenario(context.Background(), &linearCell{}, sc, config.DefaultConfig().Parameters, nil, nil)
	assert.Error(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "step 1", out[0].Label)
}
