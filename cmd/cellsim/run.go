package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/config"
	"github.com/san-kum/cellsim/internal/dashboard"
	"github.com/san-kum/cellsim/internal/export"
	"github.com/san-kum/cellsim/internal/safety"
	"github.com/san-kum/cellsim/internal/storage"
)

func dashboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "interactive parameter dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDashboard,
	}
	addParamFlags(cmd)
	cmd.Flags().BoolVar(&watchCfg, "watch", false, "reload parameters when the config file changes")
	cmd.Flags().StringVar(&theme, "theme", "", "color theme ("+strings.Join(dashboard.ThemeNames(), ", ")+")")
	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	p, err := parameters()
	if err != nil {
		return err
	}
	if err := app.store.Init(); err != nil {
		return err
	}

	m := dashboard.New(dashboard.Options{
		Simulator: app.sim,
		Store:     app.store,
		Params:    p,
		Theme:     theme,
		Logger:    app.log,
	})
	prog := tea.NewProgram(m, tea.WithAltScreen())

	if watchCfg {
		if configFile == "" {
			return errors.New("--watch needs --config")
		}
		w, err := config.NewWatcher(configFile, func(c *config.Config) {
			p, err := c.Parameters.Parameters()
			if err != nil {
				app.log.Warn("ignoring reloaded parameters", zap.Error(err))
				return
			}
			prog.Send(dashboard.ParametersMsg{Params: p})
		}, app.log)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	_, err = prog.Run()
	return err
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run one simulation and print the assessment",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	addParamFlags(cmd)
	cmd.Flags().BoolVar(&saveRun, "save", false, "store the run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	addReportFlags(cmd)
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&width, "width", 160, "report width in columns")
	cmd.Flags().StringVar(&theme, "theme", "", "color theme")
	cmd.Flags().StringVar(&mdStyle, "style", "auto", "verdict markdown style (auto, dark, light, notty)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	p, err := parameters()
	if err != nil {
		return err
	}

	start := time.Now()
	bundle, err := app.sim.Simulate(cmd.Context(), p)
	failure, failed := battery.AsSolverFailure(err)
	if err != nil && !failed {
		return err
	}
	app.log.Info("simulation finished",
		zap.String("chemistry", string(p.Chemistry)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", failed))

	var meta *storage.RunMetadata
	if saveRun {
		if err := app.store.Init(); err != nil {
			return err
		}
		meta, err = app.store.Save(app.sim.Name(), p, bundle, failure)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		app.log.Info("run saved", zap.String("id", meta.ID))
	}

	if asJSON {
		if meta == nil {
			if meta, err = storage.Describe(app.sim.Name(), p, bundle, failure); err != nil {
				return err
			}
		}
		return export.RunToJSON(os.Stdout, meta, bundle)
	}

	report := dashboard.Report{Params: p, Bundle: bundle}
	if failed {
		report.Failure = failure.Message
	}
	report.Header = fmt.Sprintf("%s backend, %v", app.sim.Name(), time.Since(start).Round(time.Millisecond))
	if meta != nil {
		report.Header += ", run id: " + meta.ID
	}
	return printReport(report)
}

func printReport(r dashboard.Report) error {
	out, err := dashboard.RenderReport(r, dashboard.RenderOptions{Width: width, Theme: theme, Markdown: mdStyle})
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func assessCommand() *cobra.Command {
	var (
		in      safety.Inputs
		jsonOut bool
		style   string
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "evaluate the safety rules on four values",
		Example: `  cellsim assess --final-voltage 4.2 --max-temp 40 --anode-potential 0.02 --ambient -2
  cellsim assess --final-voltage 4.1 --max-temp 35 --anode-potential=-0.01 --ambient 25 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := safety.Evaluate(in)
			out := cmd.OutOrStdout()

			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			md, err := dashboard.NewMarkdownRenderer(style, 100)
			if err != nil {
				return err
			}
			rendered, err := md.Render(dashboard.VerdictMarkdown(v))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&in.FinalVoltage, "final-voltage", 0, "terminal voltage at the end of the charge (V)")
	fs.Float64Var(&in.MaxTemperature, "max-temp", 0, "maximum cell temperature (°C)")
	fs.Float64Var(&in.AnodePotential, "anode-potential", 0, "anode potential at the separator (V)")
	fs.Float64Var(&in.AmbientTemperature, "ambient", 0, "ambient temperature (°C)")
	for _, name := range []string{"final-voltage", "max-temp", "anode-potential", "ambient"} {
		_ = cmd.MarkFlagRequired(name)
	}
	fs.BoolVar(&jsonOut, "json", false, "print the verdict as JSON")
	fs.StringVar(&style, "style", "auto", "markdown style")
	return cmd
}

func chemistriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chemistries",
		Short: "list available parameter sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tOPTIONS")
			for _, c := range battery.Chemistries() {
				opts := make([]string, 0, len(c.Options))
				for k, v := range c.Options {
					opts = append(opts, k+"="+v)
				}
				sort.Strings(opts)
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Label, strings.Join(opts, ", "))
			}
			return w.Flush()
		},
	}
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHEMISTRY\tCURRENT\tAMBIENT\tCOOLING\tANODE\tCATHODE\tRADIUS\tFRACTION")
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%gA\t%g°C\t%g\t%gμm\t%gμm\t%gμm\t%g\n",
					name, p.Chemistry, p.ChargeCurrent, p.AmbientTemperature, p.CoolingCoefficient,
					p.AnodeThickness, p.CathodeThickness, p.ParticleRadius, p.ActiveMaterialFraction)
			}
			return w.Flush()
		},
	}
}
