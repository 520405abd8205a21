package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/safety"
)

func newTestSurrogate(t *testing.T, integrator string) *Surrogate {
	t.Helper()
	opts := DefaultOptions()
	opts.Integrator = integrator
	s, err := NewSurrogate(opts)
	require.NoError(t, err)
	return s
}

func params(mut func(p *battery.Parameters)) battery.Parameters {
	p := battery.DefaultParameters()
	if mut != nil {
		mut(&p)
	}
	return p
}

func celsius(k float64) float64 { return k - battery.KelvinOffset }

func TestSurrogateDefaults(t *testing.T) {
	s := newTestSurrogate(t, "rk4")
	b, err := s.Simulate(context.Background(), battery.DefaultParameters())
	require.NoError(t, err)

	assert.Equal(t, 181, b.Len())
	assert.InDelta(t, battery.HorizonSeconds, b.EndTime(), 1e-9)

	v := b.Values(battery.SeriesTerminalVoltage)
	assert.InDelta(t, 3.66, v[0], 0.05)
	assert.InDelta(t, 3.90, b.Final(battery.SeriesTerminalVoltage), 0.1)
	for i := 1; i < len(v); i++ {
		require.GreaterOrEqual(t, v[i], v[i-1], "voltage should rise during charge (sample %d)", i)
	}

	temps := b.Values(battery.SeriesCellTemperature)
	assert.InDelta(t, 298.15, temps[0], 1e-9)
	for i := 1; i < len(temps); i++ {
		require.GreaterOrEqual(t, temps[i], temps[i-1], "temperature should rise (sample %d)", i)
	}
	assert.InDelta(t, 37.5, celsius(b.Max(battery.SeriesCellTemperature)), 4.5)

	anode := b.Final(battery.SeriesAnodePotential)
	assert.Greater(t, anode, safety.MinAnodePotential)
	assert.Less(t, anode, 0.1)

	assert.Less(t, b.Final(battery.SeriesInterfacialCurrent), 0.0)
	assert.InDelta(t, 680, b.Final(battery.SeriesElectrolyteConcentration), 80)
	assert.Less(t, b.Final(battery.SeriesCathodePotential), b.Final(battery.SeriesTerminalVoltage))

	verdict := safety.Assess(
		b.Final(battery.SeriesTerminalVoltage),
		celsius(b.Max(battery.SeriesCellTemperature)),
		anode,
		25,
	)
	assert.True(t, verdict.Safe, "defaults should be safe, got %v", verdict.Reasons)
}

func TestSurrogateDeterministic(t *testing.T) {
	s := newTestSurrogate(t, "rk4")
	p := params(func(p *battery.Parameters) { p.ChargeCurrent = 11.3 })

	a, err := s.Simulate(context.Background(), p)
	require.NoError(t, err)
	b, err := s.Simulate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, a.Time(), b.Time())
	for _, name := range battery.SeriesNames() {
		assert.Equal(t, a.Values(name), b.Values(name), name)
	}
}

func TestSurrogateOperatingRegimes(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(p *battery.Parameters)
		check func(t *testing.T, b *battery.SeriesBundle)
	}{
		{
			name: "max current overheats",
			mut:  func(p *battery.Parameters) { p.ChargeCurrent = 15 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Greater(t, celsius(b.Max(battery.SeriesCellTemperature)), safety.MaxCellTemperature)
			},
		},
		{
			name: "hot ambient overheats",
			mut:  func(p *battery.Parameters) { p.AmbientTemperature = 45 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Greater(t, celsius(b.Max(battery.SeriesCellTemperature)), safety.MaxCellTemperature)
			},
		},
		{
			name: "cold ambient drives the anode toward plating",
			mut:  func(p *battery.Parameters) { p.AmbientTemperature = -5 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Less(t, b.Final(battery.SeriesAnodePotential), safety.MinAnodePotential)
			},
		},
		{
			name: "trickle current stays near open circuit",
			mut:  func(p *battery.Parameters) { p.ChargeCurrent = 0.1 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.InDelta(t, 25, celsius(b.Max(battery.SeriesCellTemperature)), 0.5)
				assert.InDelta(t, 3.46, b.Final(battery.SeriesTerminalVoltage), 0.05)
			},
		},
		{
			name: "more cooling runs cooler",
			mut:  func(p *battery.Parameters) { p.CoolingCoefficient = 50 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Less(t, celsius(b.Max(battery.SeriesCellTemperature)), 33.0)
			},
		},
		{
			name: "degradation chemistry",
			mut:  func(p *battery.Parameters) { p.Chemistry = battery.OKane2022 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Equal(t, 181, b.Len())
				assert.Greater(t, b.Final(battery.SeriesAnodePotential), safety.MinAnodePotential)
			},
		},
		{
			name: "phosphate cathode sits on a flat plateau",
			mut:  func(p *battery.Parameters) { p.Chemistry = battery.Ai2020 },
			check: func(t *testing.T, b *battery.SeriesBundle) {
				assert.Equal(t, 181, b.Len())
				assert.InDelta(t, 3.48, b.Final(battery.SeriesTerminalVoltage), 0.1)
			},
		},
	}

	s := newTestSurrogate(t, "rk4")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := s.Simulate(context.Background(), params(tt.mut))
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestSurrogateFailures(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(p *battery.Parameters)
		cause string
	}{
		{
			name: "thin low-loading anode saturates",
			mut: func(p *battery.Parameters) {
				p.ChargeCurrent = 15
				p.AnodeThickness = battery.Micrometres(50)
				p.ActiveMaterialFraction = 0.5
			},
			cause: "stoichiometric saturation",
		},
		{
			name: "thick anode at max current depletes the electrolyte",
			mut: func(p *battery.Parameters) {
				p.ChargeCurrent = 15
				p.AnodeThickness = battery.Micrometres(200)
			},
			cause: "mass transport",
		},
	}

	s := newTestSurrogate(t, "rk4")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := s.Simulate(context.Background(), params(tt.mut))
			require.Error(t, err)
			assert.Nil(t, b)

			f, ok := battery.AsSolverFailure(err)
			require.True(t, ok, "expected SolverFailure, got %T", err)
			assert.Equal(t, battery.CrashMessage, f.Error())
			require.Error(t, f.Cause)
			assert.Contains(t, f.Cause.Error(), tt.cause)
		})
	}
}

func TestSurrogateRejectsInvalidParameters(t *testing.T) {
	s := newTestSurrogate(t, "rk4")
	_, err := s.Simulate(context.Background(), params(func(p *battery.Parameters) { p.ActiveMaterialFraction = 0 }))
	_, ok := battery.AsSolverFailure(err)
	assert.True(t, ok, "expected SolverFailure, got %v", err)
}

func TestSurrogateIntegratorsAgree(t *testing.T) {
	ref, err := newTestSurrogate(t, "rk4").Simulate(context.Background(), battery.DefaultParameters())
	require.NoError(t, err)

	for _, name := range []string{"euler", "rk45"} {
		t.Run(name, func(t *testing.T) {
			b, err := newTestSurrogate(t, name).Simulate(context.Background(), battery.DefaultParameters())
			require.NoError(t, err)
			require.Equal(t, ref.Len(), b.Len())
			assert.InDelta(t, ref.Final(battery.SeriesTerminalVoltage), b.Final(battery.SeriesTerminalVoltage), 0.01)
			assert.InDelta(t, ref.Max(battery.SeriesCellTemperature), b.Max(battery.SeriesCellTemperature), 0.2)
		})
	}
}

func TestSurrogateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSurrogate(t, "rk4").Simulate(ctx, battery.DefaultParameters())
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	_, isFailure := battery.AsSolverFailure(err)
	assert.False(t, isFailure)
}

func TestNewSurrogateOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Integrator = "leapfrog"
	_, err := NewSurrogate(opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.InitialSOC = 1.5
	_, err = NewSurrogate(opts)
	assert.Error(t, err)

	s, err := NewSurrogate(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().InitialSOC, s.opts.InitialSOC)
	assert.Equal(t, BackendSurrogate, s.Name())
}
