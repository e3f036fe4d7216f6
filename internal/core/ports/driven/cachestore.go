package driven

import (
	"context"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// CacheStore persists the cached dataset.
type CacheStore interface {
	// Load reads the persisted dataset. A missing cache is not an
	// error: an empty dataset is returned on first run. A cache that
	// exists but fails to parse returns a CacheCorruptionError; the
	// caller must abort rather than overwrite history.
	Load(ctx context.Context) (*domain.CachedDataset, error)

	// Save writes the full dataset so that an interrupted write never
	// leaves a readable-but-inconsistent file. Serialization is
	// deterministic: re-saving an unchanged dataset produces an
	// identical file.
	Save(ctx context.Context, dataset *domain.CachedDataset) error
}
