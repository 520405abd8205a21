package memo

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/solver"
)

// Fingerprinter is implemented by backends whose output depends on settings
// beyond the parameters (integrator, command line).
type Fingerprinter interface {
	Fingerprint() string
}

// Simulator is a memoizing solver.Simulator.
type Simulator struct {
	next      solver.Simulator
	cache     Cache
	namespace string
	group     singleflight.Group
	log       *zap.Logger
}

var _ solver.Simulator = (*Simulator)(nil)

func New(next solver.Simulator, cache Cache, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	ns := next.Name()
	if f, ok := next.(Fingerprinter); ok {
		ns = f.Fingerprint()
	}
	return &Simulator{
		next:      next,
		cache:     cache,
		namespace: ns,
		log:       log.Named("memo"),
	}
}

func (s *Simulator) Name() string { return s.next.Name() }

func (s *Simulator) Cache() Cache { return s.cache }

func (s *Simulator) Simulate(ctx context.Context, p battery.Parameters) (*battery.SeriesBundle, error) {
	key := KeyOf(s.namespace, p)

	if e, ok := s.lookup(ctx, key); ok {
		s.log.Debug("cache hit", zap.String("key", key.String()[:12]))
		return e.result()
	}

	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		// A flight that finished between our lookup and Do has already
		// stored its result. The miss was counted above.
		if e, ok, err := s.cache.Peek(ctx, key); err == nil && ok {
			return e, nil
		}

		s.log.Debug("cache miss", zap.String("key", key.String()[:12]), zap.String("chemistry", string(p.Chemistry)))
		bundle, err := s.next.Simulate(ctx, p)
		var e Entry
		switch f, isFailure := battery.AsSolverFailure(err); {
		case err == nil:
			e = Entry{Bundle: bundle}
		case isFailure:
			e = Entry{Failure: f}
		default:
			return nil, err
		}

		if err := s.cache.Put(context.WithoutCancel(ctx), key, e); err != nil {
			s.log.Warn("cache write failed", zap.Error(err))
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("collapsed concurrent request", zap.String("key", key.String()[:12]))
	}
	return v.(Entry).result()
}

func (s *Simulator) lookup(ctx context.Context, key Key) (Entry, bool) {
	e, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("cache read failed", zap.Error(err))
		}
		return Entry{}, false
	}
	return e, ok
}
