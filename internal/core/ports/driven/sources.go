package driven

import (
	"context"
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// ActivitySource fetches dated activity for a repository from a
// code-hosting provider.
type ActivitySource interface {
	// Validate checks credentials and connectivity with a lightweight
	// call. A rejected token surfaces as a FatalSourceError.
	Validate(ctx context.Context) error

	// FetchActivity returns all activity of the given kind newer than
	// the watermark. resumeCursor, when non-empty, is the last cursor
	// consumed by a previous (possibly interrupted) run; the connector
	// resumes from it instead of re-reading history.
	//
	// The result carries the candidate watermark and final cursor; the
	// connector never mutates cached state itself.
	FetchActivity(
		ctx context.Context,
		repo domain.RepositoryIdentity,
		kind domain.ActivityKind,
		watermark time.Time,
		resumeCursor string,
	) (domain.FetchResult, error)
}

// CitationSource fetches the current citation count for a publication
// from a bibliographic provider.
type CitationSource interface {
	// FetchCitations returns a snapshot dated at fetch time. Citation
	// series have no watermark; snapshots always append.
	FetchCitations(ctx context.Context, pub domain.PublicationIdentity) (domain.CitationSnapshot, error)
}
