package graphql

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
)

const (
	// DefaultQuota is the assumed hourly quota before the first
	// response reports real numbers (GitHub authenticated: 5000/hour).
	DefaultQuota = 5000

	// ProactiveRate is the proactive throttle rate (~1.2 req/sec).
	ProactiveRate = 1.2

	// MinBuffer is the low-water mark: when remaining quota drops
	// below it, the limiter suspends until the reported reset time.
	MinBuffer = 100

	// HeaderRateLimit is the quota header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimitInfo is a point-in-time view of the provider's quota, as
// reported by response headers.
type RateLimitInfo struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimiter implements dual-strategy rate limiting: a proactive
// token bucket plus reactive tracking of provider-reported quota.
// All waiting goes through the injected Sleeper so tests can simulate
// elapsed time.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
	minBuffer int
	sleeper   driven.Sleeper
}

// NewRateLimiter creates a rate limiter with default throttling.
func NewRateLimiter(sleeper driven.Sleeper) *RateLimiter {
	return NewRateLimiterWithRate(sleeper, ProactiveRate, 1, MinBuffer)
}

// NewRateLimiterWithRate creates a rate limiter with explicit
// throttling parameters. Used by tests and low-quota providers.
func NewRateLimiterWithRate(sleeper driven.Sleeper, perSec float64, burst, minBuffer int) *RateLimiter {
	if sleeper == nil {
		sleeper = driven.RealSleeper{}
	}
	return &RateLimiter{
		remaining: DefaultQuota, // assume full quota initially
		limit:     DefaultQuota,
		bucket:    rate.NewLimiter(rate.Limit(perSec), burst),
		minBuffer: minBuffer,
		sleeper:   sleeper,
	}
}

// Wait blocks until it is safe to make a request: first the proactive
// token bucket, then a suspension until reset if remaining quota is
// below the low-water mark.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining < r.minBuffer && r.sleeper.Now().Before(resetTime) {
		return r.sleeper.Sleep(ctx, resetTime.Sub(r.sleeper.Now()))
	}
	return nil
}

// UpdateFromHeaders updates quota state from response headers.
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := h.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}
	if limit := h.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}
	if reset := h.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// CheckResponse updates quota state and returns a RateLimitError if
// the response indicates the quota is exhausted (429, or 403 with
// zero remaining).
func (r *RateLimiter) CheckResponse(resp *http.Response) error {
	if resp == nil {
		return nil
	}

	r.UpdateFromHeaders(resp.Header)

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	limit := r.limit
	r.mu.Unlock()

	if resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && remaining == 0) {
		if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				resetTime = r.sleeper.Now().Add(time.Duration(seconds) * time.Second)
			}
		}
		return &RateLimitError{ResetAt: resetTime, Remaining: remaining, Limit: limit}
	}
	return nil
}

// Info returns the current quota view.
func (r *RateLimiter) Info() RateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimitInfo{Remaining: r.remaining, Limit: r.limit, ResetAt: r.resetTime}
}

// WaitForReset suspends until the reported reset time has passed.
func (r *RateLimiter) WaitForReset(ctx context.Context) error {
	r.mu.Lock()
	resetTime := r.resetTime
	r.mu.Unlock()

	if !r.sleeper.Now().Before(resetTime) {
		return nil // already reset
	}
	return r.sleeper.Sleep(ctx, resetTime.Sub(r.sleeper.Now()))
}
