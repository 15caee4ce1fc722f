// Package history keeps previous benchmark runs on disk so a new run can
// be compared against the last one.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/weiihann/featherweight/harness"
)

// Entry is the persisted summary of one scenario.
type Entry struct {
	Scenario  string  `json:"scenario"`
	Codec     string  `json:"codec"`
	Documents int     `json:"documents"`
	Composite float64 `json:"composite"`
	Median    float64 `json:"median"`
}

// Record is the persisted summary of one run.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Entries   []Entry   `json:"entries"`
}

// FromRun summarises the successful scenarios of run.
func FromRun(run harness.Run) Record {
	rec := Record{ID: run.ID, Timestamp: run.Started}

	for _, r := range run.Results {
		if r.Failed() || r.Summary == nil {
			continue
		}

		rec.Entries = append(rec.Entries, Entry{
			Scenario:  r.Scenario,
			Codec:     r.Codec,
			Documents: r.Documents,
			Composite: r.Summary.Composite,
			Median:    r.Summary.Median,
		})
	}

	return rec
}

// FileStore keeps records in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	return &FileStore{path: path}, nil
}

// Save appends rec to the store.
func (s *FileStore) Save(rec Record) error {
	recs, err := s.LoadAll()
	if err != nil {
		return err
	}

	recs = append(recs, rec)

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write history %s: %w", s.path, err)
	}

	return nil
}

// LoadAll returns every record ordered by timestamp. A missing file
// yields no records.
func (s *FileStore) LoadAll() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read history %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal history %s: %w", s.path, err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})

	return recs, nil
}

// LoadLatest returns the most recent record, or nil if there is none.
func (s *FileStore) LoadLatest() (*Record, error) {
	recs, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, nil
	}

	return &recs[len(recs)-1], nil
}

// Comparison is the change of one scenario between two runs.
type Comparison struct {
	Scenario string
	Prev     Entry
	Curr     Entry
	// CompositeDiff is the percentage change of the composite score;
	// negative means faster.
	CompositeDiff float64
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f%% composite", c.Scenario, c.CompositeDiff)
}

// Compare matches scenarios present in both records by name and codec.
func Compare(prev, curr Record) []Comparison {
	type key struct{ scenario, codec string }

	prevByKey := make(map[key]Entry, len(prev.Entries))
	for _, e := range prev.Entries {
		prevByKey[key{e.Scenario, e.Codec}] = e
	}

	var comparisons []Comparison

	for _, c := range curr.Entries {
		p, ok := prevByKey[key{c.Scenario, c.Codec}]
		if !ok {
			continue
		}

		comp := Comparison{Scenario: c.Scenario, Prev: p, Curr: c}
		if p.Composite > 0 {
			comp.CompositeDiff = (c.Composite - p.Composite) / p.Composite * 100
		}

		comparisons = append(comparisons, comp)
	}

	return comparisons
}
