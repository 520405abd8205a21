package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/config"
	"github.com/san-kum/cellsim/internal/logging"
	"github.com/san-kum/cellsim/internal/memo"
	"github.com/san-kum/cellsim/internal/solver"
	"github.com/san-kum/cellsim/internal/storage"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	verbose    bool
	backend    string
	integrator string
	noCache    bool

	preset    string
	chemistry string

	saveRun  bool
	asJSON   bool
	width    int
	theme    string
	mdStyle  string
	output   string
	watchCfg bool
)

// env is what every command needs: the merged config, a logger and the
// memoized simulator. Built once in PersistentPreRunE.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	cache memo.Cache
	sim   *memo.Simulator
	store *storage.Store
}

var app env

func main() {
	rootCmd := &cobra.Command{
		Use:           "cellsim",
		Short:         "li-ion charging parameter explorer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		RunE: runDashboard,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&backend, "backend", solver.BackendSurrogate, "solver backend ("+strings.Join(solver.Backends(), ", ")+")")
	pf.StringVar(&integrator, "integrator", config.DefaultIntegrator, "surrogate integrator")
	pf.BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	addParamFlags(rootCmd)
	rootCmd.Flags().BoolVar(&watchCfg, "watch", false, "reload parameters when the config file changes")
	rootCmd.Flags().StringVar(&theme, "theme", "", "color theme")

	rootCmd.AddCommand(
		dashboardCommand(),
		runCommand(),
		assessCommand(),
		chemistriesCommand(),
		presetsCommand(),
		runsCommand(),
		showCommand(),
		deleteCommand(),
		exportCSVCommand(),
		exportJSONCommand(),
		exportSVGCommand(),
		exportPNGCommand(),
		sweepCommand(),
		envelopeCommand(),
		scenarioCommand(),
		cacheCommand(),
	)

	err := rootCmd.Execute()
	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup merges config file, preset and explicitly set flags, then builds the
// logger, cache and simulator.
func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("backend") {
		cfg.Solver.Backend = backend
	}
	if flags.Changed("integrator") {
		cfg.Solver.Integrator = integrator
	}
	if flags.Lookup("preset") != nil && preset != "" {
		if !cfg.ApplyPreset(preset) {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if err := applyParamFlags(cmd, &cfg.Parameters); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	interactive := cmd.Name() == "cellsim" || cmd.Name() == "dashboard"
	log, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		Interactive: interactive,
		Verbose:     verbose,
	})
	if err != nil {
		return err
	}

	sim, err := solver.New(cfg.SolverOptions(log))
	if err != nil {
		return err
	}
	backendName, path, entries := cfg.Cache.Backend, cfg.CachePath(), cfg.Cache.MaxEntries
	if noCache {
		backendName, entries = memo.BackendMemory, 0
	}
	cache, err := memo.Open(backendName, path, entries)
	if err != nil {
		return err
	}

	app = env{
		cfg:   cfg,
		log:   log,
		cache: cache,
		sim:   memo.New(sim, cache, log),
		store: storage.New(cfg.RunsDir()),
	}
	return nil
}

func teardown() {
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.log.Warn("close cache", zap.Error(err))
		}
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// addParamFlags registers one flag per control plus chemistry and preset.
func addParamFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&preset, "preset", "", "start from a named preset")
	fs.StringVar(&chemistry, "chemistry", string(battery.Chen2020), "parameter set")
	for _, c := range battery.Controls() {
		usage := fmt.Sprintf("%s (%g-%g %s)", strings.ToLower(c.Label), c.Min, c.Max, c.Unit)
		fs.Float64(flagName(c.Key), c.Default, strings.TrimSpace(usage))
	}
}

// applyParamFlags overrides config values with flags the user actually set.
func applyParamFlags(cmd *cobra.Command, pc *config.ParametersConfig) error {
	fs := cmd.Flags()
	if fs.Lookup("chemistry") == nil {
		return nil
	}
	if fs.Changed("chemistry") {
		if err := pc.Set("chemistry", chemistry); err != nil {
			return err
		}
	}
	for _, c := range battery.Controls() {
		name := flagName(c.Key)
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetFloat64(name)
		if err != nil {
			return err
		}
		if !c.Contains(v) {
			return fmt.Errorf("--%s %g out of range [%g, %g]", name, v, c.Min, c.Max)
		}
		if err := pc.Set(c.Key, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

func parameters() (battery.Parameters, error) {
	return app.cfg.Parameters.Parameters()
}
