package domain

import (
	"sort"
	"time"
)

// ActivityKind identifies the type of a dated repository event.
type ActivityKind string

// Supported activity kinds.
const (
	KindCommit      ActivityKind = "commit"
	KindIssueOpened ActivityKind = "issue-opened"
	KindIssueClosed ActivityKind = "issue-closed"
	KindPullOpened  ActivityKind = "pull-request-opened"
	KindPullMerged  ActivityKind = "pull-request-merged"
)

// AllActivityKinds lists every kind in stable order.
func AllActivityKinds() []ActivityKind {
	return []ActivityKind{KindCommit, KindIssueOpened, KindIssueClosed, KindPullOpened, KindPullMerged}
}

// IsValid reports whether k is a known activity kind.
func (k ActivityKind) IsValid() bool {
	switch k {
	case KindCommit, KindIssueOpened, KindIssueClosed, KindPullOpened, KindPullMerged:
		return true
	}
	return false
}

// ActivityRecord is one dated event attributable to a repository.
// Records are immutable once created; UID is the source-provided
// unique id used for deduplication.
type ActivityRecord struct {
	UID       string       `json:"uid"`
	Kind      ActivityKind `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`

	// Author is the source-reported author identity. May be empty for
	// kinds where the source does not attribute an author.
	Author string `json:"author,omitempty"`

	// Labels carries source labels (issues and pull requests only).
	Labels []string `json:"labels,omitempty"`

	// Open reports whether the underlying item is still open at fetch
	// time (issues and pull requests only).
	Open bool `json:"open,omitempty"`
}

// Less orders records by timestamp, breaking ties by UID so that a
// merged series is deterministic.
func (a ActivityRecord) Less(b ActivityRecord) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.UID < b.UID
}

// ActivitySeries is the ordered-by-timestamp record sequence for one
// repository, with a per-kind watermark: the latest timestamp already
// fully fetched for that kind. Watermarks never move backward.
type ActivitySeries struct {
	Records    []ActivityRecord           `json:"records"`
	Watermarks map[ActivityKind]time.Time `json:"watermarks"`

	// Cursors holds the last successfully consumed pagination cursor
	// per kind, letting an interrupted fetch resume without replaying
	// full history.
	Cursors map[ActivityKind]string `json:"cursors,omitempty"`
}

// NewActivitySeries creates an empty series.
func NewActivitySeries() *ActivitySeries {
	return &ActivitySeries{
		Watermarks: make(map[ActivityKind]time.Time),
		Cursors:    make(map[ActivityKind]string),
	}
}

// Watermark returns the watermark for a kind, zero if never fetched.
func (s *ActivitySeries) Watermark(kind ActivityKind) time.Time {
	if s == nil || s.Watermarks == nil {
		return time.Time{}
	}
	return s.Watermarks[kind]
}

// Cursor returns the persisted pagination cursor for a kind.
func (s *ActivitySeries) Cursor(kind ActivityKind) string {
	if s == nil || s.Cursors == nil {
		return ""
	}
	return s.Cursors[kind]
}

// HasRecord reports whether a record with the given UID is present.
func (s *ActivitySeries) HasRecord(uid string) bool {
	for i := range s.Records {
		if s.Records[i].UID == uid {
			return true
		}
	}
	return false
}

// Sort orders the records by timestamp, UID tie-break.
func (s *ActivitySeries) Sort() {
	sort.Slice(s.Records, func(i, j int) bool {
		return s.Records[i].Less(s.Records[j])
	})
}

// Clone returns a deep copy of the series.
func (s *ActivitySeries) Clone() *ActivitySeries {
	if s == nil {
		return NewActivitySeries()
	}
	out := &ActivitySeries{
		Records:    make([]ActivityRecord, len(s.Records)),
		Watermarks: make(map[ActivityKind]time.Time, len(s.Watermarks)),
		Cursors:    make(map[ActivityKind]string, len(s.Cursors)),
	}
	copy(out.Records, s.Records)
	for k, v := range s.Watermarks {
		out.Watermarks[k] = v
	}
	for k, v := range s.Cursors {
		out.Cursors[k] = v
	}
	return out
}

// FetchResult is what a code-hosting connector returns for one
// repository and kind: the new records plus the maximum timestamp
// observed. The connector never advances the watermark itself; that
// is the merge engine's job, so watermark advancement and record
// persistence stay atomic.
type FetchResult struct {
	Kind               ActivityKind
	Records            []ActivityRecord
	CandidateWatermark time.Time

	// NextCursor is the last pagination cursor consumed, persisted so
	// the next run resumes instead of re-reading history.
	NextCursor string
}
