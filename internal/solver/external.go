package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
)

// Request is written to the external command's stdin.
type Request struct {
	Chemistry battery.Chemistry  `json:"chemistry"`
	Options   map[string]string  `json:"options"`
	Overrides map[string]float64 `json:"overrides"`
	TimeEval  [2]float64         `json:"t_eval"`
}

// Response is read from the external command's stdout. Error is set when the
// library gave up on the solve.
type Response struct {
	Time   []float64                        `json:"time"`
	Series map[battery.SeriesName][]float64 `json:"series"`
	Error  string                           `json:"error,omitempty"`
}

// External delegates the solve to a separate process.
type External struct {
	command []string
	timeout time.Duration
	log     *zap.Logger
}

func NewExternal(opts Options) (*External, error) {
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		return nil, errors.New("external backend needs a command")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &External{
		command: append([]string(nil), opts.Command...),
		timeout: opts.Timeout,
		log:     opts.Logger.Named("external"),
	}, nil
}

func (e *External) Name() string { return BackendExternal }

// NewRequest builds the request sent for p.
func NewRequest(p battery.Parameters) Request {
	return Request{
		Chemistry: p.Chemistry,
		Options:   p.Chemistry.Options(),
		Overrides: p.Overrides(),
		TimeEval:  [2]float64{0, battery.HorizonSeconds},
	}
}

func (e *External) Simulate(ctx context.Context, p battery.Parameters) (*battery.SeriesBundle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(NewRequest(p))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start solver %q: %w", e.command[0], err)
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("solver %q: %w", e.command[0], ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		e.log.Debug("solver exited with failure",
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("stderr", tail(stderr.String(), 512)),
			zap.Duration("elapsed", elapsed))
		return nil, battery.Crash(fmt.Errorf("solver exited with status %d", exitErr.ExitCode()))
	}
	if waitErr != nil {
		return nil, fmt.Errorf("run solver %q: %w", e.command[0], waitErr)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, battery.Crash(fmt.Errorf("decode solver output: %w", err))
	}
	if resp.Error != "" {
		e.log.Debug("solver reported failure", zap.String("reason", resp.Error), zap.Duration("elapsed", elapsed))
		return nil, battery.Crash(errors.New(resp.Error))
	}

	bundle, err := battery.NewSeriesBundle(resp.Time, resp.Series)
	if err != nil {
		return nil, battery.Crash(err)
	}
	e.log.Debug("solver finished", zap.Int("samples", bundle.Len()), zap.Duration("elapsed", elapsed))
	return bundle, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (e *External) Fingerprint() string {
	return BackendExternal + "/" + strings.Join(e.command, " ")
}
