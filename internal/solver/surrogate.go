package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/integrators"
)

// Surrogate integrates the reduced-order cell model over the fixed horizon.
// It is pure: identical parameters give bit-identical bundles.
type Surrogate struct {
	opts Options
	log  *zap.Logger
}

func NewSurrogate(opts Options) (*Surrogate, error) {
	def := DefaultOptions()
	if opts.Integrator == "" {
		opts.Integrator = def.Integrator
	}
	if _, err := integrators.New(opts.Integrator); err != nil {
		return nil, err
	}
	if opts.Dt <= 0 {
		opts.Dt = def.Dt
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = def.SampleEvery
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.InitialSOC <= 0 || opts.InitialSOC >= 1 {
		if opts.InitialSOC != 0 {
			return nil, fmt.Errorf("initial state of charge must be in (0, 1), got %g", opts.InitialSOC)
		}
		opts.InitialSOC = def.InitialSOC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Surrogate{opts: opts, log: opts.Logger.Named("surrogate")}, nil
}

func (s *Surrogate) Name() string { return BackendSurrogate }

func (s *Surrogate) Simulate(ctx context.Context, p battery.Parameters) (*battery.SeriesBundle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c, ok := cellFor(p.Chemistry)
	if !ok {
		return nil, battery.NewSolverFailure("no cell parameters for chemistry %q", p.Chemistry)
	}

	integ, err := integrators.New(s.opts.Integrator)
	if err != nil {
		return nil, err
	}

	model := newCellModel(c, p)
	rec := newRecorder(model)

	sim := dynamo.New(model, integ, dynamo.Constant(p.ChargeCurrent))
	sim.AddObserver(rec)
	sim.AddGuard(model.guard)

	cfg := dynamo.DefaultConfig()
	cfg.Dt = s.opts.Dt
	cfg.Duration = battery.HorizonSeconds
	cfg.SampleEvery = s.opts.SampleEvery
	cfg.Tolerance = s.opts.Tolerance
	cfg.Adaptive = integrators.IsAdaptive(integ)
	cfg.MaxDt = 10 * s.opts.Dt

	start := time.Now()
	result, err := sim.Run(ctx, model.initialState(s.opts.InitialSOC), cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if f, ok := battery.AsSolverFailure(err); ok {
			s.log.Debug("simulation diverged", zap.Error(f.Cause), zap.Duration("elapsed", time.Since(start)))
			return nil, f
		}
		if errors.Is(err, dynamo.ErrInvalidState) || errors.Is(err, dynamo.ErrStepTooSmall) {
			s.log.Debug("simulation diverged", zap.Error(err))
			return nil, battery.Crash(err)
		}
		return nil, fmt.Errorf("surrogate: %w", err)
	}

	s.log.Debug("simulation finished",
		zap.String("chemistry", string(p.Chemistry)),
		zap.Int("steps", result.StepsTaken),
		zap.Int("samples", len(result.Times)),
		zap.String("stop", result.StopReason),
		zap.Duration("elapsed", time.Since(start)))

	return battery.NewSeriesBundle(result.Times, rec.series)
}

// Fingerprint identifies the settings that shape the output.
func (s *Surrogate) Fingerprint() string {
	return fmt.Sprintf("%s/%s/dt=%g/sample=%g/tol=%g/soc=%g",
		BackendSurrogate, s.opts.Integrator, s.opts.Dt, s.opts.SampleEvery, s.opts.Tolerance, s.opts.InitialSOC)
}
