// Package logging builds the zap logger shared by the CLI and the solver
// stack.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Level  string
	Format string
	// File redirects output away from stderr. Required for logging while the
	// dashboard owns the terminal.
	File string
	// Interactive disables logging unless File is set.
	Interactive bool
	Verbose     bool
}

// New builds a logger. Interactive sessions without a file get a no-op
// logger so output never tears the TUI.
func New(opts Options) (*zap.Logger, error) {
	if opts.Interactive && opts.File == "" {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if opts.Verbose {
		lvl = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Level = lvl

	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
