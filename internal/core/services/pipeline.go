package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driving"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// Compile-time checks that PipelineService satisfies the driving ports.
var (
	_ driving.Pipeline = (*PipelineService)(nil)
	_ driving.Reader   = (*PipelineService)(nil)
)

// PipelineService orchestrates one fetch-merge-cache cycle across the
// configured repositories and publications. Keys are processed
// sequentially; a transient failure on one key never disturbs the
// others, and a fatal source error aborts the whole run.
type PipelineService struct {
	params    *domain.Parameters
	activity  driven.ActivitySource
	citations driven.CitationSource
	store     driven.CacheStore
}

// NewPipelineService wires the orchestrator. citations may be nil when
// no bibliographic credentials are configured; citation fetches are
// then skipped with a log line rather than treated as failures.
func NewPipelineService(
	params *domain.Parameters,
	activity driven.ActivitySource,
	citations driven.CitationSource,
	store driven.CacheStore,
) *PipelineService {
	return &PipelineService{
		params:    params,
		activity:  activity,
		citations: citations,
		store:     store,
	}
}

// Run executes one full pipeline pass. The cache is loaded once,
// mutated in memory by the merge engine, and persisted with a single
// atomic save at the end; an aborted run therefore leaves the
// persisted cache exactly as the previous run left it.
func (p *PipelineService) Run(ctx context.Context) (*driving.RunSummary, error) {
	summary := &driving.RunSummary{
		RunID:        uuid.New().String(),
		NewRecords:   make(map[string]int),
		NewSnapshots: make(map[string]int),
		Skipped:      make(map[string]string),
	}
	logger.Info("Starting run %s: %d repositories, %d publications",
		summary.RunID, len(p.params.Targets), len(p.params.Publications()))

	dataset, err := p.store.Load(ctx)
	if err != nil {
		// A corrupt cache aborts before any fetch; history is never
		// silently discarded.
		return summary, err
	}

	if p.activity == nil {
		return summary, errors.New("no activity source configured")
	}
	if err := p.activity.Validate(ctx); err != nil {
		return summary, err
	}

	for _, target := range p.params.Targets {
		if err := p.syncRepository(ctx, dataset, target, summary); err != nil {
			return summary, err
		}
	}

	if err := p.syncCitations(ctx, dataset, summary); err != nil {
		return summary, err
	}

	if err := p.store.Save(ctx, dataset); err != nil {
		return summary, fmt.Errorf("persisting cache: %w", err)
	}

	logger.Info("Run %s complete: %d keys skipped", summary.RunID, len(summary.Skipped))
	return summary, nil
}

// syncRepository fetches and merges every activity kind for one
// repository. A transient or overrun failure on one kind skips that
// kind only: already-merged kinds keep their new records and the
// failed kind's watermark stays put, so the next run retries the same
// window.
func (p *PipelineService) syncRepository(
	ctx context.Context,
	dataset *domain.CachedDataset,
	target domain.RepositoryTarget,
	summary *driving.RunSummary,
) error {
	repoKey := target.Repository.String()
	series := dataset.ActivityFor(target.Repository)

	for _, kind := range domain.AllActivityKinds() {
		result, err := p.activity.FetchActivity(ctx, target.Repository, kind, series.Watermark(kind), series.Cursor(kind))
		if err != nil {
			if abort := p.classify(err, repoKey+"#"+string(kind), summary); abort != nil {
				return abort
			}
			continue
		}
		added := MergeActivity(series, result)
		if added > 0 {
			summary.NewRecords[repoKey] += added
		}
		logger.Debug("Merged %d %s records for %s", added, kind, repoKey)
	}
	return nil
}

// syncCitations fetches and merges a snapshot for every configured
// publication. An unknown publication is a configuration problem, not
// a source failure; it is skipped like a transient error so the rest
// of the run proceeds.
func (p *PipelineService) syncCitations(
	ctx context.Context,
	dataset *domain.CachedDataset,
	summary *driving.RunSummary,
) error {
	pubs := p.params.Publications()
	if len(pubs) == 0 {
		return nil
	}
	if p.citations == nil {
		logger.Info("No citation source configured; skipping %d publications", len(pubs))
		return nil
	}

	policy := p.params.DecreasePolicy()
	for _, link := range pubs {
		pubKey := link.Publication.String()
		snapshot, err := p.citations.FetchCitations(ctx, link.Publication)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Publication %s not found; skipping", pubKey)
				summary.Skipped[pubKey] = err.Error()
				continue
			}
			if abort := p.classify(err, pubKey, summary); abort != nil {
				return abort
			}
			continue
		}
		if MergeCitation(dataset.CitationsFor(link.Publication), link.Publication, snapshot, policy) {
			summary.NewSnapshots[pubKey]++
		}
	}
	return nil
}

// classify decides whether a fetch error aborts the run. Transient and
// overrun errors are isolated to their key and recorded in the summary;
// everything else (fatal source errors, context cancellation) aborts.
func (p *PipelineService) classify(err error, key string, summary *driving.RunSummary) error {
	switch {
	case domain.IsTransient(err):
		logger.Warn("Skipping %s after transient failure: %v", key, err)
		summary.Skipped[key] = err.Error()
		return nil
	case domain.IsPaginationOverrun(err):
		logger.Error("Skipping %s: %v", key, err)
		summary.Skipped[key] = err.Error()
		return nil
	default:
		return err
	}
}

// Prune removes cached entries for repositories and publications no
// longer present in the configuration and persists the result. Run
// never prunes; dropping history requires this explicit call.
func (p *PipelineService) Prune(ctx context.Context) ([]string, error) {
	dataset, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	repos := make(map[string]bool, len(p.params.Targets))
	for _, target := range p.params.Targets {
		repos[target.Repository.String()] = true
	}
	pubs := make(map[string]bool)
	for _, link := range p.params.Publications() {
		pubs[link.Publication.String()] = true
	}

	removed := dataset.Prune(repos, pubs)
	if len(removed) == 0 {
		return nil, nil
	}
	if err := p.store.Save(ctx, dataset); err != nil {
		return nil, fmt.Errorf("persisting cache: %w", err)
	}
	logger.Info("Pruned %d cached keys", len(removed))
	return removed, nil
}

// Dataset loads the cached dataset for derived-statistics queries.
func (p *PipelineService) Dataset(ctx context.Context) (*domain.CachedDataset, error) {
	return p.store.Load(ctx)
}
