package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/sweep"
)

var (
	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepSteps   int
	workers      int
	currents     []float64
	envAxis      string
	envAxisRange []float64
)

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one control and tabulate the assessment",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addParamFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", battery.KeyChargeCurrent, "control to vary")
	cmd.Flags().Float64Var(&sweepFrom, "from", 1, "first value")
	cmd.Flags().Float64Var(&sweepTo, "to", 15, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 8, "number of points")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = GOMAXPROCS)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := parameters()
	if err != nil {
		return err
	}
	key := strings.ReplaceAll(sweepParam, "-", "_")
	c, ok := battery.LookupControl(key)
	if !ok {
		return fmt.Errorf("unknown control %q", sweepParam)
	}
	if !c.Contains(sweepFrom) || !c.Contains(sweepTo) {
		return fmt.Errorf("%s range must lie within [%g, %g]", key, c.Min, c.Max)
	}

	app.log.Info("sweep", zap.String("param", key), zap.Float64("from", sweepFrom),
		zap.Float64("to", sweepTo), zap.Int("steps", sweepSteps))
	out, err := sweep.Run(cmd.Context(), app.sim, sweep.Sweep{
		Base:    base,
		Key:     key,
		Min:     sweepFrom,
		Max:     sweepTo,
		Steps:   sweepSteps,
		Workers: workers,
	})
	if err != nil {
		return err
	}
	return printOutcomes(strings.ToUpper(c.Label), out, func(o sweep.Outcome) string {
		return fmt.Sprintf("%g %s", o.Params.Get(key), c.Unit)
	})
}

func printOutcomes(firstColumn string, out []sweep.Outcome, label func(sweep.Outcome) string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL V\tMAX T\tANODE φ\tVERDICT\n", firstColumn)
	for _, o := range out {
		if o.Failure != "" {
			fmt.Fprintf(w, "%s\t-\t-\t-\tdiverged: %s\n", label(o), o.Failure)
			continue
		}
		verdict := "SAFE"
		if !o.Safe() {
			verdict = "UNSAFE: " + strings.Join(o.Reasons(), " ")
		}
		fmt.Fprintf(w, "%s\t%.2f V\t%.1f °C\t%.4f V\t%s\n",
			label(o), o.Summary.FinalVoltage, o.Summary.MaxTemperature, o.Summary.AnodePotential, verdict)
	}
	return w.Flush()
}

func envelopeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "find the highest safe charge current",
		Args:  cobra.NoArgs,
		RunE:  runEnvelope,
	}
	addParamFlags(cmd)
	cmd.Flags().Float64SliceVar(&currents, "currents", []float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, "candidate currents in A")
	cmd.Flags().StringVar(&envAxis, "axis", "", "second control to scan, e.g. ambient_temperature")
	cmd.Flags().Float64SliceVar(&envAxisRange, "axis-values", nil, "values for --axis")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = GOMAXPROCS)")
	return cmd
}

func runEnvelope(cmd *cobra.Command, args []string) error {
	base, err := parameters()
	if err != nil {
		return err
	}
	axis := strings.ReplaceAll(envAxis, "-", "_")
	if axis != "" && len(envAxisRange) == 0 {
		return fmt.Errorf("--axis %s needs --axis-values", envAxis)
	}

	bounds, err := sweep.Envelope{
		Base:       base,
		Currents:   currents,
		Axis:       axis,
		AxisValues: envAxisRange,
		Workers:    workers,
	}.Search(cmd.Context(), app.sim)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if axis != "" {
		fmt.Fprintf(w, "%s\t", strings.ToUpper(axis))
	}
	fmt.Fprintln(w, "MAX SAFE CURRENT\tLIMITED AT\tREASON")
	for _, b := range bounds {
		if axis != "" {
			fmt.Fprintf(w, "%g\t", b.AxisValue)
		}
		safe := "none"
		if b.Found {
			safe = fmt.Sprintf("%g A", b.MaxSafeCurrent)
		}
		limit, reason := "-", "-"
		if len(b.Limit) > 0 {
			limit = fmt.Sprintf("%g A", b.LimitCurrent)
			reason = strings.Join(b.Limit, " ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", safe, limit, reason)
	}
	return w.Flush()
}

func scenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML list of parameter sets",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addParamFlags(cmd)
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := sweep.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if err := app.store.Init(); err != nil {
		return err
	}

	save := func(o sweep.Outcome) error {
		var failure *battery.SolverFailure
		if o.Failure != "" {
			failure = &battery.SolverFailure{Message: o.Failure}
		}
		meta, err := app.store.Save(app.sim.Name(), o.Params, o.Bundle, failure)
		if err != nil {
			return err
		}
		app.log.Info("scenario run saved", zap.String("step", o.Label), zap.String("id", meta.ID))
		return nil
	}

	if sc.Description != "" {
		fmt.Printf("%s: %s\n\n", sc.Name, sc.Description)
	}
	out, err := sweep.RunScenario(cmd.Context(), app.sim, sc, app.cfg.Parameters, save, app.log)
	if perr := printOutcomes("STEP", out, func(o sweep.Outcome) string { return o.Label }); perr != nil && err == nil {
		err = perr
	}
	return err
}
