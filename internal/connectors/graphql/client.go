package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response body is kept
	// for the error message.
	maxErrorBody = 2048
)

// Client posts GraphQL queries to a single endpoint with bearer
// authorization and rate-limit tracking.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client for the given endpoint. The token is
// carried by an oauth2 static token source and never logged.
func NewClient(endpoint, token string, sleeper driven.Sleeper) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = DefaultTimeout
	return &Client{
		endpoint:    endpoint,
		httpClient:  hc,
		rateLimiter: NewRateLimiter(sleeper),
	}
}

// NewClientWithHTTP creates a client with an explicit HTTP client and
// rate limiter. Used by tests and by providers with non-default quotas.
func NewClientWithHTTP(endpoint string, hc *http.Client, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	return &Client{endpoint: endpoint, httpClient: hc, rateLimiter: limiter}
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// request is the GraphQL POST body.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// envelope is the GraphQL response wrapper.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Do executes one GraphQL query, waits on the rate limiter first, and
// decodes the data field into out. The returned RateLimitInfo is the
// quota view after this request.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) (RateLimitInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return c.rateLimiter.Info(), fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return c.rateLimiter.Info(), fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return c.rateLimiter.Info(), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.rateLimiter.Info(), fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	if rateErr := c.rateLimiter.CheckResponse(resp); rateErr != nil {
		return c.rateLimiter.Info(), rateErr
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.rateLimiter.Info(), &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        c.endpoint,
		}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return c.rateLimiter.Info(), fmt.Errorf("decode response: %w", err)
	}
	if len(env.Errors) > 0 {
		// RATE_LIMITED arrives as a 200 with an errors entry.
		for _, e := range env.Errors {
			if e.Type == "RATE_LIMITED" {
				return c.rateLimiter.Info(), &RateLimitError{
					ResetAt:   c.rateLimiter.Info().ResetAt,
					Remaining: c.rateLimiter.Info().Remaining,
					Limit:     c.rateLimiter.Info().Limit,
				}
			}
		}
		return c.rateLimiter.Info(), fmt.Errorf("%w: %s", ErrMalformedQuery, env.Errors[0].Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return c.rateLimiter.Info(), fmt.Errorf("decode data: %w", err)
		}
	}
	return c.rateLimiter.Info(), nil
}
