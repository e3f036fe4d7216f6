package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthInvalid indicates the supplied credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")
)

// TransientSourceError wraps a network failure, 5xx response, or
// timeout that survived the bounded retry budget. The orchestrator
// skips the affected key for this run; the watermark stays put so the
// next run retries the same window.
type TransientSourceError struct {
	Source string
	Key    string
	Err    error
}

func (e *TransientSourceError) Error() string {
	return fmt.Sprintf("%s: transient failure for %s: %v", e.Source, e.Key, e.Err)
}

func (e *TransientSourceError) Unwrap() error { return e.Err }

// FatalSourceError wraps an authentication failure or malformed query.
// Retrying other keys would fail identically, so the orchestrator
// aborts the run.
type FatalSourceError struct {
	Source string
	Err    error
}

func (e *FatalSourceError) Error() string {
	return fmt.Sprintf("%s: fatal source error: %v", e.Source, e.Err)
}

func (e *FatalSourceError) Unwrap() error { return e.Err }

// RateLimitError reports exhausted quota with the reset time. It is a
// scheduled suspension, not a failure: the paginator sleeps until
// ResetAt and resumes from the last cursor.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// PaginationOverrunError reports a paginated source that exceeded the
// configured page safety cap without signalling completion. Treated
// as transient for the affected key, but logged prominently since it
// suggests a protocol change upstream.
type PaginationOverrunError struct {
	Pages int
}

func (e *PaginationOverrunError) Error() string {
	return fmt.Sprintf("pagination exceeded safety cap of %d pages without completing", e.Pages)
}

// CacheCorruptionError reports a persisted cache that failed to parse.
// The run aborts rather than silently starting from empty, so history
// is never discarded without operator intervention.
type CacheCorruptionError struct {
	Path string
	Err  error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("cache at %s is corrupt: %v", e.Path, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Err }

// IsTransient checks if the error is a TransientSourceError.
func IsTransient(err error) bool {
	var t *TransientSourceError
	return errors.As(err, &t)
}

// IsFatal checks if the error is a FatalSourceError.
func IsFatal(err error) bool {
	var f *FatalSourceError
	return errors.As(err, &f)
}

// IsRateLimited checks if the error is a RateLimitError.
func IsRateLimited(err error) bool {
	var r *RateLimitError
	return errors.As(err, &r)
}

// IsPaginationOverrun checks if the error is a PaginationOverrunError.
func IsPaginationOverrun(err error) bool {
	var p *PaginationOverrunError
	return errors.As(err, &p)
}

// IsCacheCorruption checks if the error is a CacheCorruptionError.
func IsCacheCorruption(err error) bool {
	var c *CacheCorruptionError
	return errors.As(err, &c)
}
