// Package ads implements the bibliographic citation source against
// the NASA Astrophysics Data System search API.
//
// A citation count is a single value per bibcode, but the search API
// answers with the same paged envelope it uses for large result sets,
// so the fetch runs through the generic paginator and tolerates a
// response split across pages.
package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/graphql"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// Endpoint is the ADS search API endpoint.
const Endpoint = "https://api.adsabs.harvard.edu/v1/search/query"

// pageRows is the rows-per-page for search responses.
const pageRows = 20

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 2048

// Ensure Connector implements the interface.
var _ driven.CitationSource = (*Connector)(nil)

// Connector fetches citation counts from ADS.
type Connector struct {
	endpoint    string
	token       string
	httpClient  *http.Client
	rateLimiter *graphql.RateLimiter
	sleeper     driven.Sleeper
	maxPages    int
}

// New creates an ADS connector with the given bearer token.
func New(token string, sleeper driven.Sleeper, maxPages int) *Connector {
	hc := &http.Client{Timeout: graphql.DefaultTimeout}
	return NewWithEndpoint(Endpoint, token, hc, graphql.NewRateLimiter(sleeper), sleeper, maxPages)
}

// NewWithEndpoint creates a connector against an explicit endpoint,
// HTTP client, and rate limiter. Used by tests.
func NewWithEndpoint(endpoint, token string, hc *http.Client, limiter *graphql.RateLimiter, sleeper driven.Sleeper, maxPages int) *Connector {
	if sleeper == nil {
		sleeper = driven.RealSleeper{}
	}
	if limiter == nil {
		limiter = graphql.NewRateLimiter(sleeper)
	}
	return &Connector{
		endpoint:    endpoint,
		token:       token,
		httpClient:  hc,
		rateLimiter: limiter,
		sleeper:     sleeper,
		maxPages:    maxPages,
	}
}

// searchResponse is the ADS search envelope.
type searchResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Start    int `json:"start"`
		Docs     []struct {
			Bibcode       string `json:"bibcode"`
			CitationCount int    `json:"citation_count"`
		} `json:"docs"`
	} `json:"response"`
}

// FetchCitations returns a snapshot of the publication's current
// citation count, dated at fetch time.
func (c *Connector) FetchCitations(ctx context.Context, pub domain.PublicationIdentity) (domain.CitationSnapshot, error) {
	p := &graphql.Paginator[int]{
		Source:   "ads",
		Key:      pub.String(),
		Fetch:    c.fetchPage(pub),
		Sleeper:  c.sleeper,
		MaxPages: c.maxPages,
	}

	found := false
	count := 0
	err := p.Each(ctx, "", func(items []int, _ string) error {
		for _, n := range items {
			// A bibcode resolves to one record; if the source ever
			// returns several, the largest count wins.
			if !found || n > count {
				count = n
			}
			found = true
		}
		return nil
	})
	if err != nil {
		return domain.CitationSnapshot{}, err
	}
	if !found {
		return domain.CitationSnapshot{}, fmt.Errorf("%w: bibcode %s", domain.ErrNotFound, pub)
	}

	snapshot := domain.CitationSnapshot{FetchDate: domain.DateOf(c.sleeper.Now()), Count: count}
	logger.Info("Fetched %d citations for %s", count, pub)
	return snapshot, nil
}

// fetchPage builds the paginator fetch function for one bibcode. The
// cursor is the decimal start offset into the result set.
func (c *Connector) fetchPage(pub domain.PublicationIdentity) graphql.FetchFunc[int] {
	return func(ctx context.Context, cursor string) (graphql.Page[int], error) {
		start := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return graphql.Page[int]{}, fmt.Errorf("%w: bad cursor %q", domain.ErrInvalidInput, cursor)
			}
			start = n
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return graphql.Page[int]{}, fmt.Errorf("rate limit wait: %w", err)
		}

		query := url.Values{}
		query.Set("q", "bibcode:"+pub.String())
		query.Set("fl", "bibcode,citation_count")
		query.Set("rows", strconv.Itoa(pageRows))
		query.Set("start", strconv.Itoa(start))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return graphql.Page[int]{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return graphql.Page[int]{}, fmt.Errorf("search query: %w", err)
		}
		defer resp.Body.Close()

		if rateErr := c.rateLimiter.CheckResponse(resp); rateErr != nil {
			return graphql.Page[int]{}, rateErr
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return graphql.Page[int]{}, &graphql.APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(msg)),
				URL:        c.endpoint,
			}
		}

		var sr searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return graphql.Page[int]{}, fmt.Errorf("decode response: %w", err)
		}

		counts := make([]int, 0, len(sr.Response.Docs))
		for _, doc := range sr.Response.Docs {
			counts = append(counts, doc.CitationCount)
		}
		next := sr.Response.Start + len(sr.Response.Docs)
		return graphql.Page[int]{
			Items:     counts,
			EndCursor: strconv.Itoa(next),
			HasNext:   len(sr.Response.Docs) > 0 && next < sr.Response.NumFound,
		}, nil
	}
}
