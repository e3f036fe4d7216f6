package cachefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

func testDataset() *domain.CachedDataset {
	dataset := domain.NewCachedDataset()
	series := dataset.ActivityFor(domain.NewRepositoryIdentity("sunpy", "sunpy"))
	series.Records = append(series.Records, domain.ActivityRecord{
		UID:       "abc123",
		Kind:      domain.KindCommit,
		Timestamp: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		Author:    "alice",
	})
	series.Watermarks[domain.KindCommit] = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	series.Cursors[domain.KindIssueOpened] = "c42"

	citations := dataset.CitationsFor("2020ApJ...100M")
	citations.Snapshots = append(citations.Snapshots, domain.CitationSnapshot{
		FetchDate: domain.Date{Year: 2024, Month: time.March, Day: 1},
		Count:     42,
	})
	return dataset
}

func TestLoadMissingFileReturnsEmptyDataset(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache.json"))

	dataset, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, dataset.Activity)
	assert.Empty(t, dataset.Citations)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDataset()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	series := loaded.Activity["sunpy/sunpy"]
	require.NotNil(t, series)
	require.Len(t, series.Records, 1)
	assert.Equal(t, "abc123", series.Records[0].UID)
	assert.Equal(t, "alice", series.Records[0].Author)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), series.Watermark(domain.KindCommit))
	assert.Equal(t, "c42", series.Cursor(domain.KindIssueOpened))

	citations := loaded.Citations["2020ApJ...100M"]
	require.NotNil(t, citations)
	require.Len(t, citations.Snapshots, 1)
	assert.Equal(t, 42, citations.Snapshots[0].Count)
	assert.Equal(t, "2024-03-01", citations.Snapshots[0].FetchDate.String())
}

func TestSaveIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDataset()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Save the dataset as loaded back; unchanged content must produce
	// byte-identical output or the file churns in version control.
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, loaded))

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestLoadCorruptFileFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0600))

	_, err := NewStore(path).Load(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsCacheCorruption(err))
	var corrupt *domain.CacheCorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	store := NewStore(path)

	require.NoError(t, store.Save(context.Background(), testDataset()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "cache.json"))

	require.NoError(t, store.Save(context.Background(), testDataset()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache.json", entries[0].Name())
}
