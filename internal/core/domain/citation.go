package domain

import (
	"sort"
	"time"
)

// CitationSnapshot is a single dated observation of a publication's
// citation count. Counts are usually non-decreasing but a source may
// correct downward; a decrease is recorded, never treated as an error.
type CitationSnapshot struct {
	FetchDate Date `json:"fetch_date"`
	Count     int  `json:"count"`
}

// CitationSeries is the ordered-by-fetch-date snapshot sequence for
// one publication. Append-only; a snapshot with the same date as an
// existing one replaces it (last-write-wins for same-day re-runs).
type CitationSeries struct {
	Snapshots []CitationSnapshot `json:"snapshots"`
}

// NewCitationSeries creates an empty series.
func NewCitationSeries() *CitationSeries {
	return &CitationSeries{}
}

// Latest returns the most recent snapshot, false if the series is empty.
func (s *CitationSeries) Latest() (CitationSnapshot, bool) {
	if s == nil || len(s.Snapshots) == 0 {
		return CitationSnapshot{}, false
	}
	return s.Snapshots[len(s.Snapshots)-1], true
}

// Sort orders the snapshots by fetch date.
func (s *CitationSeries) Sort() {
	sort.Slice(s.Snapshots, func(i, j int) bool {
		return s.Snapshots[i].FetchDate.Before(s.Snapshots[j].FetchDate)
	})
}

// Clone returns a deep copy of the series.
func (s *CitationSeries) Clone() *CitationSeries {
	if s == nil {
		return NewCitationSeries()
	}
	out := &CitationSeries{Snapshots: make([]CitationSnapshot, len(s.Snapshots))}
	copy(out.Snapshots, s.Snapshots)
	return out
}

// Date is a calendar day in UTC, the granularity of all activity
// timestamps and citation snapshots.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf truncates a time to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d precedes other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// Equal reports whether two dates are the same day.
func (d Date) Equal(other Date) bool {
	return d == other
}

// String returns the "2006-01-02" form.
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// MarshalText implements encoding.TextMarshaler so dates serialize as
// "2006-01-02" in the cache file.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
