package services

import (
	"sort"
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// Derived statistics are computed from raw records at read time and
// never persisted, so they cannot drift from the records they
// summarize.

// Month is a calendar month in UTC, the bucket for per-month series.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates a time to its UTC calendar month.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// Next returns the following month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// String returns the "2006-01" form.
func (m Month) String() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// MonthCount is one month's tally in a per-month series.
type MonthCount struct {
	Month Month
	Count int
}

// MonthValue is one month's value in a smoothed per-month series.
type MonthValue struct {
	Month Month
	Value float64
}

// RecordsOfKind returns the records of one kind, preserving order.
func RecordsOfKind(series *domain.ActivitySeries, kind domain.ActivityKind) []domain.ActivityRecord {
	if series == nil {
		return nil
	}
	var out []domain.ActivityRecord
	for _, rec := range series.Records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// MonthlyCounts buckets records per calendar month. Months between the
// first and last record with no activity appear with a zero count, so
// a quiet stretch shows as a gap rather than vanishing from the series.
func MonthlyCounts(records []domain.ActivityRecord) []MonthCount {
	if len(records) == 0 {
		return nil
	}
	counts := make(map[Month]int)
	first := MonthOf(records[0].Timestamp)
	last := first
	for _, rec := range records {
		m := MonthOf(rec.Timestamp)
		counts[m]++
		if m.Before(first) {
			first = m
		}
		if last.Before(m) {
			last = m
		}
	}
	var out []MonthCount
	for m := first; !last.Before(m); m = m.Next() {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}

// RollingAverage smooths a per-month series with a centered window.
// The window is forced odd (rounded up) so the average stays centered
// on its month; at the edges the window truncates to the available
// months.
func RollingAverage(counts []MonthCount, window int) []MonthValue {
	if window < 1 {
		window = 1
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2
	out := make([]MonthValue, len(counts))
	for i := range counts {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(counts)-1 {
			hi = len(counts) - 1
		}
		sum := 0
		for j := lo; j <= hi; j++ {
			sum += counts[j].Count
		}
		out[i] = MonthValue{Month: counts[i].Month, Value: float64(sum) / float64(hi-lo+1)}
	}
	return out
}

// CumulativeCounts converts a per-month series into a running total.
func CumulativeCounts(counts []MonthCount) []MonthCount {
	out := make([]MonthCount, len(counts))
	total := 0
	for i, c := range counts {
		total += c.Count
		out[i] = MonthCount{Month: c.Month, Count: total}
	}
	return out
}

// CountSince tallies the records at or after the cutoff.
func CountSince(records []domain.ActivityRecord, cutoff time.Time) int {
	n := 0
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// isBot reports whether an author identity is in the bot list.
func isBot(author string, bots []string) bool {
	for _, b := range bots {
		if author == b {
			return true
		}
	}
	return false
}

// UniqueAuthors returns the distinct non-bot author identities across
// the records, sorted. Records without an author are skipped.
func UniqueAuthors(records []domain.ActivityRecord, bots []string) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Author == "" || isBot(rec.Author, bots) {
			continue
		}
		seen[rec.Author] = true
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// AuthorCount is one author's tally, for per-author leaderboards.
type AuthorCount struct {
	Author string
	Count  int
}

// AuthorCounts tallies records per non-bot author, ordered by count
// descending with an author-name tie-break so the leaderboard is
// deterministic. Records without an author are skipped.
func AuthorCounts(records []domain.ActivityRecord, bots []string) []AuthorCount {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Author == "" || isBot(rec.Author, bots) {
			continue
		}
		counts[rec.Author]++
	}
	out := make([]AuthorCount, 0, len(counts))
	for author, n := range counts {
		out = append(out, AuthorCount{Author: author, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Author < out[j].Author
	})
	return out
}

// NewAuthorsSince returns the non-bot authors whose earliest record
// falls at or after the cutoff, sorted. An author active before the
// cutoff does not count as new however active they are within it.
func NewAuthorsSince(records []domain.ActivityRecord, bots []string, cutoff time.Time) []string {
	earliest := make(map[string]time.Time)
	for _, rec := range records {
		if rec.Author == "" || isBot(rec.Author, bots) {
			continue
		}
		if t, ok := earliest[rec.Author]; !ok || rec.Timestamp.Before(t) {
			earliest[rec.Author] = rec.Timestamp
		}
	}
	var out []string
	for a, t := range earliest {
		if !t.Before(cutoff) {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// AuthorsPerMonth buckets distinct non-bot authors per calendar month,
// zero-filling quiet months like MonthlyCounts.
func AuthorsPerMonth(records []domain.ActivityRecord, bots []string) []MonthCount {
	byMonth := make(map[Month]map[string]bool)
	var first, last Month
	haveAny := false
	for _, rec := range records {
		if rec.Author == "" || isBot(rec.Author, bots) {
			continue
		}
		m := MonthOf(rec.Timestamp)
		if byMonth[m] == nil {
			byMonth[m] = make(map[string]bool)
		}
		byMonth[m][rec.Author] = true
		if !haveAny {
			first, last = m, m
			haveAny = true
		}
		if m.Before(first) {
			first = m
		}
		if last.Before(m) {
			last = m
		}
	}
	if !haveAny {
		return nil
	}
	var out []MonthCount
	for m := first; !last.Before(m); m = m.Next() {
		out = append(out, MonthCount{Month: m, Count: len(byMonth[m])})
	}
	return out
}

// NewAuthorsPerMonth buckets first-time non-bot contributors by the
// calendar month of their earliest record, zero-filling quiet months.
// Each author appears in exactly one month.
func NewAuthorsPerMonth(records []domain.ActivityRecord, bots []string) []MonthCount {
	earliest := make(map[string]time.Time)
	for _, rec := range records {
		if rec.Author == "" || isBot(rec.Author, bots) {
			continue
		}
		if t, ok := earliest[rec.Author]; !ok || rec.Timestamp.Before(t) {
			earliest[rec.Author] = rec.Timestamp
		}
	}
	if len(earliest) == 0 {
		return nil
	}
	counts := make(map[Month]int)
	var first, last Month
	haveAny := false
	for _, t := range earliest {
		m := MonthOf(t)
		counts[m]++
		if !haveAny {
			first, last = m, m
			haveAny = true
		}
		if m.Before(first) {
			first = m
		}
		if last.Before(m) {
			last = m
		}
	}
	var out []MonthCount
	for m := first; !last.Before(m); m = m.Next() {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}

// OpenCount tallies the records whose underlying item is still open.
func OpenCount(records []domain.ActivityRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Open {
			n++
		}
	}
	return n
}

// LabelTally counts, per configured label, the open items carrying it.
// Labels with no open items appear with a zero count so the summary
// lists every configured label.
func LabelTally(records []domain.ActivityRecord, labels []string) map[string]int {
	out := make(map[string]int, len(labels))
	for _, l := range labels {
		out[l] = 0
	}
	for _, rec := range records {
		if !rec.Open {
			continue
		}
		for _, l := range rec.Labels {
			if _, tracked := out[l]; tracked {
				out[l]++
			}
		}
	}
	return out
}

// YearCount is one year's citation count.
type YearCount struct {
	Year  int
	Count int
}

// CitationsByYear reduces a snapshot series to the last observed count
// per calendar year, in year order. Snapshots within a year supersede
// each other; the series stays sorted so the last one wins.
func CitationsByYear(series *domain.CitationSeries) []YearCount {
	if series == nil || len(series.Snapshots) == 0 {
		return nil
	}
	byYear := make(map[int]int)
	var years []int
	for _, snap := range series.Snapshots {
		if _, ok := byYear[snap.FetchDate.Year]; !ok {
			years = append(years, snap.FetchDate.Year)
		}
		byYear[snap.FetchDate.Year] = snap.Count
	}
	sort.Ints(years)
	out := make([]YearCount, len(years))
	for i, y := range years {
		out[i] = YearCount{Year: y, Count: byYear[y]}
	}
	return out
}
