package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/memo"
	"github.com/san-kum/cellsim/internal/solver"
)

const (
	DefaultDataDir    = ".cellsim"
	DefaultIntegrator = "rk4"
	DefaultDt         = 1.0
	DefaultSample     = 5.0
	DefaultTolerance  = 1e-7
	DefaultInitialSOC = 0.2
	DefaultLogLevel   = "info"
)

// Environment variables applied after the file is read.
const (
	EnvDataDir       = "CELLSIM_DATA_DIR"
	EnvSolverBackend = "CELLSIM_SOLVER_BACKEND"
	EnvSolverCommand = "CELLSIM_SOLVER_COMMAND"
	EnvLogLevel      = "CELLSIM_LOG_LEVEL"
)

type Config struct {
	Parameters ParametersConfig `yaml:"parameters"`
	Solver     SolverConfig     `yaml:"solver"`
	Cache      CacheConfig      `yaml:"cache"`
	DataDir    string           `yaml:"data_dir"`
	Log        LogConfig        `yaml:"log"`
}

// ParametersConfig holds the slider defaults in display units (μm for
// electrode dimensions).
type ParametersConfig struct {
	Chemistry              string  `yaml:"chemistry"`
	ChargeCurrent          float64 `yaml:"charge_current"`
	AmbientTemperature     float64 `yaml:"ambient_temperature"`
	CoolingCoefficient     float64 `yaml:"cooling_coefficient"`
	AnodeThickness         float64 `yaml:"anode_thickness_um"`
	CathodeThickness       float64 `yaml:"cathode_thickness_um"`
	ParticleRadius         float64 `yaml:"particle_radius_um"`
	ActiveMaterialFraction float64 `yaml:"active_material_fraction"`
}

type SolverConfig struct {
	Backend     string        `yaml:"backend"`
	Command     []string      `yaml:"command"`
	Timeout     time.Duration `yaml:"timeout"`
	Integrator  string        `yaml:"integrator"`
	Dt          float64       `yaml:"dt"`
	SampleEvery float64       `yaml:"sample_every"`
	Tolerance   float64       `yaml:"tolerance"`
	InitialSOC  float64       `yaml:"initial_soc"`
}

type CacheConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives logs while the dashboard owns the terminal.
	File string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Parameters: FromParameters(battery.DefaultParameters()),
		Solver: SolverConfig{
			Backend:     solver.BackendSurrogate,
			Integrator:  DefaultIntegrator,
			Dt:          DefaultDt,
			SampleEvery: DefaultSample,
			Tolerance:   DefaultTolerance,
			InitialSOC:  DefaultInitialSOC,
		},
		Cache: CacheConfig{
			Backend:    memo.BackendMemory,
			MaxEntries: 256,
		},
		DataDir: DefaultDataDir,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvSolverBackend); v != "" {
		cfg.Solver.Backend = v
	}
	if v := os.Getenv(EnvSolverCommand); v != "" {
		cfg.Solver.Command = strings.Fields(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) Validate() error {
	if _, err := c.Parameters.Parameters(); err != nil {
		return err
	}
	switch strings.ToLower(c.Solver.Backend) {
	case solver.BackendSurrogate:
	case solver.BackendExternal:
		if len(c.Solver.Command) == 0 {
			return fmt.Errorf("solver.command is required for the %s backend", solver.BackendExternal)
		}
	default:
		return fmt.Errorf("unknown solver backend %q", c.Solver.Backend)
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", memo.BackendMemory, memo.BackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Parameters converts the display-unit defaults into a validated request.
func (pc ParametersConfig) Parameters() (battery.Parameters, error) {
	chem, err := battery.ParseChemistry(pc.Chemistry)
	if err != nil {
		return battery.Parameters{}, err
	}
	p := battery.Parameters{Chemistry: chem}
	for key, v := range pc.values() {
		p = p.With(key, v)
	}
	if err := p.Validate(); err != nil {
		return battery.Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	return p, nil
}

func (pc ParametersConfig) values() map[string]float64 {
	return map[string]float64{
		battery.KeyChargeCurrent:          pc.ChargeCurrent,
		battery.KeyAmbientTemperature:     pc.AmbientTemperature,
		battery.KeyCoolingCoefficient:     pc.CoolingCoefficient,
		battery.KeyAnodeThickness:         pc.AnodeThickness,
		battery.KeyCathodeThickness:       pc.CathodeThickness,
		battery.KeyParticleRadius:         pc.ParticleRadius,
		battery.KeyActiveMaterialFraction: pc.ActiveMaterialFraction,
	}
}

func FromParameters(p battery.Parameters) ParametersConfig {
	return ParametersConfig{
		Chemistry:              string(p.Chemistry),
		ChargeCurrent:          p.Get(battery.KeyChargeCurrent),
		AmbientTemperature:     p.Get(battery.KeyAmbientTemperature),
		CoolingCoefficient:     p.Get(battery.KeyCoolingCoefficient),
		AnodeThickness:         p.Get(battery.KeyAnodeThickness),
		CathodeThickness:       p.Get(battery.KeyCathodeThickness),
		ParticleRadius:         p.Get(battery.KeyParticleRadius),
		ActiveMaterialFraction: p.Get(battery.KeyActiveMaterialFraction),
	}
}

// SolverOptions maps the solver section onto backend options.
func (c *Config) SolverOptions(log *zap.Logger) solver.Options {
	return solver.Options{
		Backend:     c.Solver.Backend,
		Command:     c.Solver.Command,
		Timeout:     c.Solver.Timeout,
		Integrator:  c.Solver.Integrator,
		Dt:          c.Solver.Dt,
		SampleEvery: c.Solver.SampleEvery,
		Tolerance:   c.Solver.Tolerance,
		InitialSOC:  c.Solver.InitialSOC,
		Logger:      log,
	}
}

// CachePath resolves the sqlite cache file, defaulting into the data dir.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.DataDir, "cache.db")
}

// RunsDir is where stored runs live.
func (c *Config) RunsDir() string {
	return filepath.Join(c.DataDir, "runs")
}

// Set applies one "section.key=value" style override, as used by scenario
// files and the CLI.
func (pc *ParametersConfig) Set(key string, value string) error {
	if key == "chemistry" {
		if _, err := battery.ParseChemistry(value); err != nil {
			return err
		}
		pc.Chemistry = value
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case battery.KeyChargeCurrent:
		pc.ChargeCurrent = v
	case battery.KeyAmbientTemperature:
		pc.AmbientTemperature = v
	case battery.KeyCoolingCoefficient:
		pc.CoolingCoefficient = v
	case battery.KeyAnodeThickness:
		pc.AnodeThickness = v
	case battery.KeyCathodeThickness:
		pc.CathodeThickness = v
	case battery.KeyParticleRadius:
		pc.ParticleRadius = v
	case battery.KeyActiveMaterialFraction:
		pc.ActiveMaterialFraction = v
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}
