package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/safety"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousID  = errors.New("storage: run id prefix is ambiguous")
	ErrNoSeriesData = errors.New("storage: run has no series (solver failed)")
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Backend    string             `json:"backend"`
	Parameters battery.Parameters `json:"parameters"`
	Summary    *metrics.Summary   `json:"summary,omitempty"`
	Verdict    *safety.Verdict    `json:"verdict,omitempty"`
	Failure    string             `json:"failure,omitempty"`
	Samples    int                `json:"samples"`
}

// Failed reports whether the run ended in a solver failure.
func (m RunMetadata) Failed() bool { return m.Failure != "" }

// Describe builds the metadata for an outcome without storing it.
func Describe(backend string, p battery.Parameters, bundle *battery.SeriesBundle, failure *battery.SolverFailure) (*RunMetadata, error) {
	if (bundle == nil) == (failure == nil) {
		return nil, errors.New("storage: run needs exactly one of bundle or failure")
	}

	meta := &RunMetadata{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Backend:    backend,
		Parameters: p,
	}
	if failure != nil {
		meta.Failure = failure.Error()
		return meta, nil
	}
	summary := metrics.Summarize(bundle, p)
	verdict := summary.Verdict()
	meta.Summary = &summary
	meta.Verdict = &verdict
	meta.Samples = bundle.Len()
	return meta, nil
}

// Save stores one outcome: either a bundle or the solver failure.
func (s *Store) Save(backend string, p battery.Parameters, bundle *battery.SeriesBundle, failure *battery.SolverFailure) (*RunMetadata, error) {
	meta, err := Describe(backend, p, bundle, failure)
	if err != nil {
		return nil, err
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return nil, err
	}
	if bundle != nil {
		if err := writeSeries(filepath.Join(runDir, seriesFile), bundle); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func writeSeries(path string, b *battery.SeriesBundle) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, b); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes the bundle with a time column followed by one column per
// series. Values use the shortest exact representation.
func WriteCSV(w io.Writer, b *battery.SeriesBundle) error {
	cw := csv.NewWriter(w)

	names := battery.SeriesNames()
	header := []string{"time"}
	for _, name := range names {
		header = append(header, string(name))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i] = b.Values(name)
	}
	for i, t := range b.Time() {
		row := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for _, col := range columns {
			row = append(row, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// List returns every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

// Resolve expands a unique id prefix into the full run id.
func (s *Store) Resolve(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrRunNotFound
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metadataFile)); err == nil {
		return prefix, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
		}
		return "", err
	}

	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(id)
}

func (s *Store) readMetadata(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return &meta, nil
}

// LoadSeries rebuilds the bundle of a successful run.
func (s *Store) LoadSeries(runID string) (*battery.SeriesBundle, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, id, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSeriesData, id)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("run %s: %w", id, battery.ErrInvalidBundle)
	}

	header := records[0]
	times := make([]float64, 0, len(records)-1)
	columns := make([][]float64, len(header)-1)
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s row %d: %w", id, i+1, err)
			}
			values[j] = v
		}
		times = append(times, values[0])
		for j := range columns {
			columns[j] = append(columns[j], values[j+1])
		}
	}

	series := make(map[battery.SeriesName][]float64, len(columns))
	for j, col := range columns {
		series[battery.SeriesName(header[j+1])] = col
	}
	return battery.NewSeriesBundle(times, series)
}

// Delete removes a stored run.
func (s *Store) Delete(runID string) error {
	id, err := s.Resolve(runID)
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, id))
}
