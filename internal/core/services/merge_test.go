package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeActivityIntoEmptySeries(t *testing.T) {
	series := domain.NewActivitySeries()
	result := domain.FetchResult{
		Kind: domain.KindCommit,
		Records: []domain.ActivityRecord{
			{UID: "1", Kind: domain.KindCommit, Timestamp: day(2024, 1, 1)},
			{UID: "2", Kind: domain.KindCommit, Timestamp: day(2024, 1, 2)},
		},
		CandidateWatermark: day(2024, 1, 2),
	}

	added := MergeActivity(series, result)

	assert.Equal(t, 2, added)
	require.Len(t, series.Records, 2)
	assert.Equal(t, day(2024, 1, 2), series.Watermark(domain.KindCommit))

	// A second merge of the same result changes nothing.
	added = MergeActivity(series, result)
	assert.Zero(t, added)
	assert.Len(t, series.Records, 2)
	assert.Equal(t, day(2024, 1, 2), series.Watermark(domain.KindCommit))
}

func TestMergeActivityDropsDuplicateUIDs(t *testing.T) {
	series := domain.NewActivitySeries()
	MergeActivity(series, domain.FetchResult{
		Kind: domain.KindCommit,
		Records: []domain.ActivityRecord{
			{UID: "a", Kind: domain.KindCommit, Timestamp: day(2024, 1, 1)},
		},
		CandidateWatermark: day(2024, 1, 1),
	})

	// Overlapping window: "a" comes back alongside a new record.
	added := MergeActivity(series, domain.FetchResult{
		Kind: domain.KindCommit,
		Records: []domain.ActivityRecord{
			{UID: "a", Kind: domain.KindCommit, Timestamp: day(2024, 1, 1)},
			{UID: "b", Kind: domain.KindCommit, Timestamp: day(2024, 1, 3)},
		},
		CandidateWatermark: day(2024, 1, 3),
	})

	assert.Equal(t, 1, added)
	require.Len(t, series.Records, 2)
	assert.Equal(t, "a", series.Records[0].UID)
	assert.Equal(t, "b", series.Records[1].UID)
}

func TestMergeActivitySortsByTimestampThenUID(t *testing.T) {
	series := domain.NewActivitySeries()
	MergeActivity(series, domain.FetchResult{
		Kind: domain.KindIssueOpened,
		Records: []domain.ActivityRecord{
			{UID: "z", Kind: domain.KindIssueOpened, Timestamp: day(2024, 2, 1)},
			{UID: "a", Kind: domain.KindIssueOpened, Timestamp: day(2024, 2, 1)},
			{UID: "m", Kind: domain.KindIssueOpened, Timestamp: day(2024, 1, 15)},
		},
		CandidateWatermark: day(2024, 2, 1),
	})

	require.Len(t, series.Records, 3)
	assert.Equal(t, []string{"m", "a", "z"}, []string{
		series.Records[0].UID, series.Records[1].UID, series.Records[2].UID,
	})
}

func TestMergeActivityWatermarkNeverRegresses(t *testing.T) {
	series := domain.NewActivitySeries()
	series.Watermarks[domain.KindCommit] = day(2024, 6, 1)

	added := MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindCommit,
		CandidateWatermark: day(2024, 3, 1),
	})

	assert.Zero(t, added)
	assert.Equal(t, day(2024, 6, 1), series.Watermark(domain.KindCommit))
}

func TestMergeActivityEmptyResultIsNoOp(t *testing.T) {
	series := domain.NewActivitySeries()
	series.Watermarks[domain.KindPullMerged] = day(2024, 4, 1)

	added := MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindPullMerged,
		CandidateWatermark: day(2024, 4, 1),
	})

	assert.Zero(t, added)
	assert.Empty(t, series.Records)
	assert.Equal(t, day(2024, 4, 1), series.Watermark(domain.KindPullMerged))
}

func TestMergeActivityPersistsCursor(t *testing.T) {
	series := domain.NewActivitySeries()
	MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindIssueOpened,
		CandidateWatermark: day(2024, 1, 1),
		NextCursor:         "cursor-17",
	})
	assert.Equal(t, "cursor-17", series.Cursor(domain.KindIssueOpened))

	// A result without a cursor leaves the stored one alone.
	MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindIssueOpened,
		CandidateWatermark: day(2024, 1, 2),
	})
	assert.Equal(t, "cursor-17", series.Cursor(domain.KindIssueOpened))
}

func TestMergeActivityKindsAreIndependent(t *testing.T) {
	series := domain.NewActivitySeries()
	MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindCommit,
		CandidateWatermark: day(2024, 5, 1),
	})
	MergeActivity(series, domain.FetchResult{
		Kind:               domain.KindIssueClosed,
		CandidateWatermark: day(2024, 2, 1),
	})

	assert.Equal(t, day(2024, 5, 1), series.Watermark(domain.KindCommit))
	assert.Equal(t, day(2024, 2, 1), series.Watermark(domain.KindIssueClosed))
	assert.True(t, series.Watermark(domain.KindPullOpened).IsZero())
}

func TestMergeCitationAppends(t *testing.T) {
	series := domain.NewCitationSeries()

	MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{
		FetchDate: domain.Date{Year: 2024, Month: time.January, Day: 1},
		Count:     10,
	}, domain.DecreaseWarn)
	MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{
		FetchDate: domain.Date{Year: 2024, Month: time.February, Day: 1},
		Count:     14,
	}, domain.DecreaseWarn)

	require.Len(t, series.Snapshots, 2)
	latest, ok := series.Latest()
	require.True(t, ok)
	assert.Equal(t, 14, latest.Count)
}

func TestMergeCitationSameDayOverwrites(t *testing.T) {
	series := domain.NewCitationSeries()
	date := domain.Date{Year: 2024, Month: time.March, Day: 5}

	appended := MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{FetchDate: date, Count: 10}, domain.DecreaseWarn)
	assert.True(t, appended)
	appended = MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{FetchDate: date, Count: 12}, domain.DecreaseWarn)
	assert.False(t, appended)

	require.Len(t, series.Snapshots, 1)
	assert.Equal(t, 12, series.Snapshots[0].Count)
}

func TestMergeCitationRecordsDecrease(t *testing.T) {
	tests := []struct {
		name   string
		policy domain.CitationDecreasePolicy
	}{
		{name: "warn policy still records the lower count", policy: domain.DecreaseWarn},
		{name: "accept policy records silently", policy: domain.DecreaseAccept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := domain.NewCitationSeries()
			MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{
				FetchDate: domain.Date{Year: 2024, Month: time.January, Day: 1},
				Count:     20,
			}, tt.policy)
			MergeCitation(series, "2020ApJ...100M", domain.CitationSnapshot{
				FetchDate: domain.Date{Year: 2024, Month: time.February, Day: 1},
				Count:     18,
			}, tt.policy)

			latest, ok := series.Latest()
			require.True(t, ok)
			assert.Equal(t, 18, latest.Count)
		})
	}
}
