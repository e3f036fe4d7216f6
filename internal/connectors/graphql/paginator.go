package graphql

import (
	"context"
	"errors"
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
)

const (
	// MaxRetries is the default retry budget per cursor for
	// transient errors.
	MaxRetries = 3

	// RetryDelay is the initial backoff delay, doubled per attempt.
	RetryDelay = time.Second

	// DefaultMaxPages caps pages per fetch against a source that
	// never reports completion.
	DefaultMaxPages = 500

	// MaxSuspensions caps rate-limit suspensions per cursor. A source
	// that still reports exhaustion after this many waits past its own
	// reset time is misbehaving, not rate-limiting.
	MaxSuspensions = 5
)

// Page is one page of a cursor-paginated result set.
type Page[T any] struct {
	Items []T

	// EndCursor is the continuation token for the next page. It is
	// meaningful even on the final page: callers persist it to resume
	// later fetches past the items already consumed.
	EndCursor string

	// HasNext reports whether another page follows.
	HasNext bool
}

// FetchFunc fetches the page following cursor. An empty cursor means
// the first page. Implementations return provider-classified errors
// (APIError, RateLimitError) so the paginator can decide between
// retry, suspension, and surfacing.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// PageFunc consumes one page of items together with the cursor that
// ends it. Returning an error stops pagination. Callers persist the
// cursor of the last page they fully consumed; resuming with it later
// re-issues the fetch from that point.
type PageFunc[T any] func(items []T, endCursor string) error

// Paginator drives a FetchFunc across all pages with rate-limit
// suspension, bounded exponential-backoff retry, and a page safety
// cap. It holds no persistent state: restartability comes from the
// caller persisting cursors.
type Paginator[T any] struct {
	// Source and Key label errors for the orchestrator ("github",
	// "sunpy/sunpy").
	Source string
	Key    string

	Fetch      FetchFunc[T]
	Sleeper    driven.Sleeper
	MaxPages   int
	MaxRetries int
	RetryDelay time.Duration
}

// Each fetches every page from startCursor to completion, handing
// each page to fn. Rate-limit errors suspend until the reported reset
// and retry the same cursor; transient errors retry up to the budget
// then surface as TransientSourceError; anything else surfaces as
// FatalSourceError immediately.
func (p *Paginator[T]) Each(ctx context.Context, startCursor string, fn PageFunc[T]) error {
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = driven.RealSleeper{}
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	retryDelay := p.RetryDelay
	if retryDelay <= 0 {
		retryDelay = RetryDelay
	}

	cursor := startCursor
	for pages := 0; ; pages++ {
		if pages >= maxPages {
			return &domain.PaginationOverrunError{Pages: maxPages}
		}

		page, err := p.fetchWithRetry(ctx, sleeper, cursor, maxRetries, retryDelay)
		if err != nil {
			return err
		}

		if page.EndCursor != "" {
			cursor = page.EndCursor
		}
		if err := fn(page.Items, cursor); err != nil {
			return err
		}
		if !page.HasNext {
			return nil
		}
	}
}

// fetchWithRetry fetches one page, suspending on rate limits and
// retrying transient failures with exponential backoff.
func (p *Paginator[T]) fetchWithRetry(
	ctx context.Context,
	sleeper driven.Sleeper,
	cursor string,
	maxRetries int,
	retryDelay time.Duration,
) (Page[T], error) {
	var lastErr error
	delay := retryDelay
	suspensions := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Page[T]{}, err
		}

		page, err := p.Fetch(ctx, cursor)
		if err == nil {
			return page, nil
		}

		var rateErr *RateLimitError
		if errors.As(err, &rateErr) {
			// A scheduled suspension, not a failure: it does not
			// consume the retry budget. It is bounded separately so a
			// source whose reset time never arrives cannot pin the
			// fetch forever.
			suspensions++
			if suspensions > MaxSuspensions {
				return Page[T]{}, &domain.TransientSourceError{Source: p.Source, Key: p.Key, Err: err}
			}
			wait := rateErr.ResetAt.Sub(sleeper.Now())
			if wait < retryDelay {
				// Stale or missing reset time still waits a real
				// interval before asking again.
				wait = retryDelay
			}
			if sleepErr := sleeper.Sleep(ctx, wait); sleepErr != nil {
				return Page[T]{}, sleepErr
			}
			attempt--
			continue
		}

		if !IsRetryable(err) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Page[T]{}, err
			}
			return Page[T]{}, &domain.FatalSourceError{Source: p.Source, Err: err}
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		if sleepErr := sleeper.Sleep(ctx, delay); sleepErr != nil {
			return Page[T]{}, sleepErr
		}
		delay *= 2
	}

	return Page[T]{}, &domain.TransientSourceError{Source: p.Source, Key: p.Key, Err: lastErr}
}
