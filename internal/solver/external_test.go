package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/cellsim/internal/battery"
)

const helperEnv = "CELLSIM_SOLVER_HELPER"

// TestHelperProcess stands in for the external solver when re-executed by
// helperCommand. It does nothing in a normal test run.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}

	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintln(os.Stderr, "bad request:", err)
		os.Exit(2)
	}

	switch mode {
	case "ok":
		resp := Response{Time: []float64{0, 450, 900}, Series: map[battery.SeriesName][]float64{}}
		for _, name := range battery.SeriesNames() {
			resp.Series[name] = []float64{1, 2, 3}
		}
		ambient := req.Overrides["Ambient temperature [K]"]
		resp.Series[battery.SeriesCellTemperature] = []float64{ambient, ambient + 1, ambient + 2}
		resp.Series[battery.SeriesTerminalVoltage] = []float64{3.6, 3.8, -req.Overrides["Current function [A]"] / 2}
		_ = json.NewEncoder(os.Stdout).Encode(resp)
	case "reported":
		_ = json.NewEncoder(os.Stdout).Encode(Response{Error: "Solver failed: maximum number of decreased steps"})
	case "exit":
		fmt.Fprintln(os.Stderr, "Traceback (most recent call last):")
		os.Exit(3)
	case "garbage":
		fmt.Fprint(os.Stdout, "not json")
	case "short":
		_ = json.NewEncoder(os.Stdout).Encode(Response{Time: []float64{0, 900}, Series: map[battery.SeriesName][]float64{
			battery.SeriesTerminalVoltage: {3.6, 3.9},
		}})
	}
	os.Exit(0)
}

func helperExternal(t *testing.T, mode string) *External {
	t.Helper()
	t.Setenv(helperEnv, mode)
	opts := DefaultOptions()
	opts.Backend = BackendExternal
	opts.Command = []string{os.Args[0], "-test.run=TestHelperProcess", "--"}
	sim, err := New(opts)
	require.NoError(t, err)
	ext, ok := sim.(*External)
	require.True(t, ok)
	return ext
}

func TestExternalSuccess(t *testing.T) {
	ext := helperExternal(t, "ok")
	p := params(func(p *battery.Parameters) {
		p.AmbientTemperature = 10
		p.ChargeCurrent = 9
	})

	b, err := ext.Simulate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	assert.InDelta(t, 283.15, b.Values(battery.SeriesCellTemperature)[0], 1e-9)
	assert.InDelta(t, 4.5, b.Final(battery.SeriesTerminalVoltage), 1e-9)
}

func TestExternalFailures(t *testing.T) {
	for _, mode := range []string{"reported", "exit", "garbage", "short"} {
		t.Run(mode, func(t *testing.T) {
			ext := helperExternal(t, mode)
			_, err := ext.Simulate(context.Background(), battery.DefaultParameters())
			f, ok := battery.AsSolverFailure(err)
			require.True(t, ok, "expected SolverFailure, got %v", err)
			assert.Equal(t, battery.CrashMessage, f.Error())
		})
	}
}

func TestExternalMissingCommand(t *testing.T) {
	ext, err := NewExternal(Options{Command: []string{"/nonexistent/cellsim-solver"}})
	require.NoError(t, err)

	_, err = ext.Simulate(context.Background(), battery.DefaultParameters())
	require.Error(t, err)
	_, ok := battery.AsSolverFailure(err)
	assert.False(t, ok, "a missing command is not a property of the parameters")
}

func TestNewRequest(t *testing.T) {
	p := params(func(p *battery.Parameters) { p.Chemistry = battery.OKane2022 })
	req := NewRequest(p)

	assert.Equal(t, [2]float64{0, 900}, req.TimeEval)
	assert.Equal(t, "partially reversible", req.Options["lithium plating"])
	assert.Equal(t, "lumped", req.Options["thermal"])
	assert.InDelta(t, -7.5, req.Overrides["Current function [A]"], 1e-12)
	assert.InDelta(t, 5.0, req.Overrides["Upper voltage cut-off [V]"], 1e-12)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"t_eval":[0,900]`)
}

func TestNewBackend(t *testing.T) {
	sim, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, BackendSurrogate, sim.Name())

	_, err = New(Options{Backend: "external"})
	assert.Error(t, err, "external backend without a command")

	_, err = New(Options{Backend: "pybamm-cloud"})
	assert.Error(t, err)
}

func TestExternalHasNoDefaultTimeout(t *testing.T) {
	assert.Zero(t, DefaultOptions().Timeout)

	ext := helperExternal(t, "ok")
	assert.Zero(t, ext.timeout)
	b, err := ext.Simulate(context.Background(), battery.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
}
