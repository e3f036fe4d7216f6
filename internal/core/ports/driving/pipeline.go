package driving

import (
	"context"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// Pipeline drives the fetch-merge-cache cycle.
type Pipeline interface {
	// Run executes one full pipeline pass: load cache, fetch activity
	// for each configured repository and citations for each configured
	// publication, merge, persist. A transient failure on one key is
	// isolated (logged, skipped, watermark untouched); a fatal source
	// error aborts the run. The returned summary reports per-key
	// outcomes even when err is non-nil.
	Run(ctx context.Context) (*RunSummary, error)

	// Prune removes cached entries for repositories and publications
	// no longer present in the configuration. Never invoked by Run.
	Prune(ctx context.Context) ([]string, error)
}

// RunSummary reports the outcome of one pipeline run.
type RunSummary struct {
	// RunID uniquely identifies this run in logs.
	RunID string

	// NewRecords counts activity records added per repository key.
	NewRecords map[string]int

	// NewSnapshots counts citation snapshots added per publication key.
	NewSnapshots map[string]int

	// Skipped maps each skipped key to the reason it was skipped.
	Skipped map[string]string
}

// Failed reports whether any key was skipped.
func (s *RunSummary) Failed() bool {
	return len(s.Skipped) > 0
}

// Reader answers derived-statistics queries over the cached dataset
// without re-running merge logic. The report/plot collaborator is its
// only consumer.
type Reader interface {
	// Dataset returns the loaded dataset for query functions.
	Dataset(ctx context.Context) (*domain.CachedDataset, error)
}
