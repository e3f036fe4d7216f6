package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedDatasetLazyInit(t *testing.T) {
	d := NewCachedDataset()

	repo := NewRepositoryIdentity("sunpy", "sunpy")
	s := d.ActivityFor(repo)
	require.NotNil(t, s)
	assert.Same(t, s, d.ActivityFor(repo), "second lookup returns the same series")

	c := d.CitationsFor("2020ApJ...890...68S")
	require.NotNil(t, c)
	assert.Same(t, c, d.CitationsFor("2020ApJ...890...68S"))
}

func TestCachedDatasetSortedKeys(t *testing.T) {
	d := NewCachedDataset()
	d.ActivityFor(NewRepositoryIdentity("sunpy", "ndcube"))
	d.ActivityFor(NewRepositoryIdentity("sunpy", "ablog"))
	d.CitationsFor("b")
	d.CitationsFor("a")

	assert.Equal(t, []string{"sunpy/ablog", "sunpy/ndcube"}, d.RepositoryKeys())
	assert.Equal(t, []string{"a", "b"}, d.PublicationKeys())
}

func TestCachedDatasetPrune(t *testing.T) {
	d := NewCachedDataset()
	d.ActivityFor(NewRepositoryIdentity("sunpy", "sunpy"))
	d.ActivityFor(NewRepositoryIdentity("sunpy", "retired"))
	d.CitationsFor("keep")
	d.CitationsFor("drop")

	removed := d.Prune(
		map[string]bool{"sunpy/sunpy": true},
		map[string]bool{"keep": true},
	)

	assert.Equal(t, []string{"drop", "sunpy/retired"}, removed)
	assert.Contains(t, d.Activity, "sunpy/sunpy")
	assert.NotContains(t, d.Activity, "sunpy/retired")
	assert.Contains(t, d.Citations, "keep")
	assert.NotContains(t, d.Citations, "drop")
}
