// Package memo memoizes simulation results.
//
// A [Simulator] wraps any solver.Simulator with a [Cache]. Bundles and
// solver failures are both deterministic for a parameter tuple, so both are
// cached; infrastructure errors are not. Concurrent identical requests are
// collapsed into a single solve.
package memo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/cellsim/internal/battery"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Entry is a cached outcome: exactly one of Bundle and Failure is set.
type Entry struct {
	Bundle  *battery.SeriesBundle
	Failure *battery.SolverFailure
}

func (e Entry) result() (*battery.SeriesBundle, error) {
	if e.Failure != nil {
		return nil, e.Failure
	}
	return e.Bundle, nil
}

func (e Entry) valid() bool {
	return (e.Bundle == nil) != (e.Failure == nil)
}

var ErrInvalidEntry = errors.New("memo: entry must hold exactly one of bundle or failure")

type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Capacity  int
}

func (s Stats) String() string {
	capacity := "unbounded"
	if s.Capacity > 0 {
		capacity = fmt.Sprintf("%d", s.Capacity)
	}
	return fmt.Sprintf("entries=%d capacity=%s hits=%d misses=%d evictions=%d",
		s.Entries, capacity, s.Hits, s.Misses, s.Evictions)
}

// Cache stores entries by key. Implementations are safe for concurrent use.
type Cache interface {
	// Get looks up an entry and counts the hit or miss.
	Get(ctx context.Context, key Key) (Entry, bool, error)
	// Peek looks up an entry without touching the counters.
	Peek(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, e Entry) error
	// Purge drops every entry.
	Purge(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Open builds a cache by backend name. path is only used by sqlite.
func Open(backend, path string, maxEntries int) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryCache(maxEntries), nil
	case BackendSQLite:
		return OpenSQLite(path, maxEntries)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
