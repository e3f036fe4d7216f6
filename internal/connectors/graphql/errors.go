package graphql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// RateLimitError is the domain rate-limit error; the limiter and
// paginator construct and consume the same type the orchestrator
// classifies.
type RateLimitError = domain.RateLimitError

// ErrMalformedQuery indicates the provider rejected the query itself.
// Retrying cannot help.
var ErrMalformedQuery = errors.New("graphql: malformed query")

// APIError represents a non-2xx HTTP response from the provider.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graphql: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRetryable reports whether an error is worth retrying with the
// same cursor: network failures, timeouts, and 5xx responses.
// Context cancellation and rate limiting are not retryable here;
// both have their own handling in the paginator.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Unwrapped transport failures (connection reset, DNS) arrive as
	// *url.Error values, which satisfy net.Error above. Anything else
	// reaching this point came from response decoding mid-stream.
	return false
}

// IsUnauthorized checks if the error indicates rejected credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsMalformed checks if the error indicates a query the provider
// cannot execute.
func IsMalformed(err error) bool {
	if errors.Is(err, ErrMalformedQuery) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
