package services

import (
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// MergeActivity reconciles one fetch result with the cached series
// for a repository. It is idempotent: merging the same result twice
// yields the same series as merging it once.
//
//  1. Incoming records whose UID already exists are dropped silently;
//     overlapping fetch windows are expected at the watermark boundary.
//  2. Surviving records are appended and the combined set re-sorted by
//     timestamp, UID tie-break, for determinism.
//  3. The watermark advances to max(existing, candidate); it never
//     regresses. The fetch cursor is only persisted alongside the
//     watermark, keeping cursor and window consistent.
//
// Derived metrics are never stored; the stats queries recompute them
// from raw records at read time so totals cannot drift.
//
// An empty incoming set is a valid no-op merge. Returns the number of
// records added.
func MergeActivity(series *domain.ActivitySeries, incoming domain.FetchResult) int {
	seen := make(map[string]bool, len(series.Records))
	for i := range series.Records {
		seen[series.Records[i].UID] = true
	}

	added := 0
	for _, rec := range incoming.Records {
		if seen[rec.UID] {
			continue
		}
		seen[rec.UID] = true
		series.Records = append(series.Records, rec)
		added++
	}
	if added > 0 {
		series.Sort()
	}

	if series.Watermarks == nil {
		series.Watermarks = make(map[domain.ActivityKind]time.Time)
	}
	if incoming.CandidateWatermark.After(series.Watermark(incoming.Kind)) {
		series.Watermarks[incoming.Kind] = incoming.CandidateWatermark
	}
	if incoming.NextCursor != "" {
		if series.Cursors == nil {
			series.Cursors = make(map[domain.ActivityKind]string)
		}
		series.Cursors[incoming.Kind] = incoming.NextCursor
	}
	return added
}

// MergeCitation appends a snapshot to a publication's series.
// Citation merge is append-only with no dedup: snapshots are dated,
// and a snapshot on the same date as an existing one replaces it
// (last-write-wins for same-day re-runs).
//
// The policy decides whether a count lower than the latest recorded
// one is logged for operator review; it is recorded either way, since
// sources may correct downward.
//
// Returns true when a new snapshot was appended, false when a same-day
// one was replaced.
func MergeCitation(
	series *domain.CitationSeries,
	pub domain.PublicationIdentity,
	snapshot domain.CitationSnapshot,
	policy domain.CitationDecreasePolicy,
) bool {
	if latest, ok := series.Latest(); ok && snapshot.Count < latest.Count && policy == domain.DecreaseWarn {
		logger.Warn("Citation count for %s decreased from %d to %d", pub, latest.Count, snapshot.Count)
	}

	for i := range series.Snapshots {
		if series.Snapshots[i].FetchDate.Equal(snapshot.FetchDate) {
			series.Snapshots[i] = snapshot
			return false
		}
	}
	series.Snapshots = append(series.Snapshots, snapshot)
	series.Sort()
	return true
}
