// Package cachefile persists the cached dataset as a single JSON file.
//
// The file is the system's only durable state and is meant to live in
// version control, so the encoding is deterministic: map keys are
// sorted, output is indented, and re-saving an unchanged dataset
// produces byte-identical content. Saves go through a temp file and
// rename so a crash mid-write never leaves a truncated cache behind.
package cachefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CacheStore = (*Store)(nil)

// Store is a file-based implementation of driven.CacheStore.
type Store struct {
	path string
}

// NewStore creates a store persisting to the given path. The file and
// its parent directory are created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cached dataset. A missing file yields an empty
// dataset (first run); a file that exists but fails to parse yields a
// CacheCorruptionError so history is never silently discarded.
func (s *Store) Load(_ context.Context) (*domain.CachedDataset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewCachedDataset(), nil
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var dataset domain.CachedDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, &domain.CacheCorruptionError{Path: s.path, Err: err}
	}
	if dataset.Activity == nil {
		dataset.Activity = make(map[string]*domain.ActivitySeries)
	}
	if dataset.Citations == nil {
		dataset.Citations = make(map[string]*domain.CitationSeries)
	}
	return &dataset, nil
}

// Save persists the dataset atomically: the encoding is written to a
// temp file in the same directory and renamed over the target, so
// readers see either the old cache or the new one, never a partial
// write.
func (s *Store) Save(_ context.Context, dataset *domain.CachedDataset) error {
	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
