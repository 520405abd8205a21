package memo

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/cellsim/internal/battery"
)

// SQLiteCache persists entries, and the hit, miss and eviction counters,
// across runs of the CLI.
type SQLiteCache struct {
	db       *sql.DB
	path     string
	capacity int
}

const (
	counterHits      = "hits"
	counterMisses    = "misses"
	counterEvictions = "evictions"
)

// record is the gob payload. Floats round-trip bit for bit.
type record struct {
	Time    []float64
	Series  map[string][]float64
	Message string
	Cause   string
}

func OpenSQLite(path string, capacity int) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New("sqlite cache needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db, path: path, capacity: max(capacity, 0)}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS simulations (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		failed INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_simulations_created ON simulations(created_at);
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func bump(ctx context.Context, db execer, name string, n int64) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO counters (name, value) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`, name, n)
	if err != nil {
		return fmt.Errorf("cache counter %s: %w", name, err)
	}
	return nil
}

func (c *SQLiteCache) Path() string { return c.path }

func (c *SQLiteCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	e, ok, err := c.Peek(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	counter := counterMisses
	if ok {
		counter = counterHits
	}
	if err := bump(ctx, c.db, counter, 1); err != nil {
		return Entry{}, false, err
	}
	return e, ok, nil
}

func (c *SQLiteCache) Peek(ctx context.Context, key Key) (Entry, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM simulations WHERE key = ?`, key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	e, err := decodeEntry(payload)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return e, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key Key, e Entry) error {
	if !e.valid() {
		return ErrInvalidEntry
	}
	payload, err := encodeEntry(e)
	if err != nil {
		return err
	}

	failed := 0
	if e.Failure != nil {
		failed = 1
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO simulations (key, payload, failed, created_at) VALUES (?, ?, ?, ?)`,
		key.String(), payload, failed, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}

	if c.capacity > 0 {
		res, err := tx.ExecContext(ctx, `
		DELETE FROM simulations WHERE key NOT IN (
			SELECT key FROM simulations ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, c.capacity)
		if err != nil {
			return fmt.Errorf("cache eviction: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			if err := bump(ctx, tx, counterEvictions, n); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (c *SQLiteCache) Purge(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM simulations`); err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Capacity: c.capacity}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulations`).Scan(&stats.Entries); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return Stats{}, fmt.Errorf("cache stats: %w", err)
		}
		switch name {
		case counterHits:
			stats.Hits = uint64(value)
		case counterMisses:
			stats.Misses = uint64(value)
		case counterEvictions:
			stats.Evictions = uint64(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func encodeEntry(e Entry) ([]byte, error) {
	var r record
	if e.Failure != nil {
		r.Message = e.Failure.Message
		if e.Failure.Cause != nil {
			r.Cause = e.Failure.Cause.Error()
		}
	} else {
		r.Time = e.Bundle.Time()
		r.Series = make(map[string][]float64)
		for _, name := range battery.SeriesNames() {
			r.Series[string(name)] = e.Bundle.Values(name)
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(payload []byte) (Entry, error) {
	var r record
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&r); err != nil {
		return Entry{}, fmt.Errorf("decode: %w", err)
	}
	if r.Message != "" {
		f := &battery.SolverFailure{Message: r.Message}
		if r.Cause != "" {
			f.Cause = errors.New(r.Cause)
		}
		return Entry{Failure: f}, nil
	}

	series := make(map[battery.SeriesName][]float64, len(r.Series))
	for name, values := range r.Series {
		series[battery.SeriesName(name)] = values
	}
	b, err := battery.NewSeriesBundle(r.Time, series)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Bundle: b}, nil
}
