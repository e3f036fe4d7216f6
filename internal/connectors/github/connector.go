package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/graphql"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// GraphQLEndpoint is the GitHub GraphQL API endpoint.
const GraphQLEndpoint = "https://api.github.com/graphql"

// DefaultPageSize is the items-per-page for history queries.
const DefaultPageSize = 100

// maxLabels caps labels fetched per issue or pull request.
const maxLabels = 25

// errStopPagination stops update-ordered pagination early once items
// fall behind the watermark. Never surfaces to callers.
var errStopPagination = errors.New("github: pagination window complete")

// Ensure Connector implements the interface.
var _ driven.ActivitySource = (*Connector)(nil)

// Connector fetches repository activity from GitHub.
type Connector struct {
	gql      *graphql.Client
	rest     *gh.Client
	sleeper  driven.Sleeper
	maxPages int
	pageSize int

	mu       sync.Mutex
	branches map[string]string // repo key -> default branch
}

// New creates a GitHub connector with the given bearer token.
func New(token string, sleeper driven.Sleeper, maxPages int) *Connector {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = graphql.DefaultTimeout
	return NewWithClients(graphql.NewClient(GraphQLEndpoint, token, sleeper), gh.NewClient(hc), sleeper, maxPages)
}

// NewWithClients creates a connector with explicit clients. Used by
// tests to point both at a fake server.
func NewWithClients(gql *graphql.Client, rest *gh.Client, sleeper driven.Sleeper, maxPages int) *Connector {
	if sleeper == nil {
		sleeper = driven.RealSleeper{}
	}
	return &Connector{
		gql:      gql,
		rest:     rest,
		sleeper:  sleeper,
		maxPages: maxPages,
		pageSize: DefaultPageSize,
		branches: make(map[string]string),
	}
}

// Validate checks the token with a lightweight REST call. A rejected
// token is fatal for the whole run.
func (c *Connector) Validate(ctx context.Context) error {
	_, resp, err := c.rest.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &domain.FatalSourceError{Source: "github", Err: domain.ErrAuthInvalid}
		}
		return fmt.Errorf("validate credentials: %w", err)
	}
	return nil
}

// FetchActivity fetches all activity of one kind newer than the
// watermark, deduplicated within the fetch. It returns the candidate
// watermark without advancing anything.
func (c *Connector) FetchActivity(
	ctx context.Context,
	repo domain.RepositoryIdentity,
	kind domain.ActivityKind,
	watermark time.Time,
	resumeCursor string,
) (domain.FetchResult, error) {
	switch kind {
	case domain.KindCommit:
		return c.fetchCommits(ctx, repo, watermark)
	case domain.KindIssueOpened:
		return c.fetchItemsOpened(ctx, repo, domain.KindIssueOpened, watermark, resumeCursor)
	case domain.KindPullOpened:
		return c.fetchItemsOpened(ctx, repo, domain.KindPullOpened, watermark, resumeCursor)
	case domain.KindIssueClosed:
		return c.fetchItemsResolved(ctx, repo, domain.KindIssueClosed, watermark)
	case domain.KindPullMerged:
		return c.fetchItemsResolved(ctx, repo, domain.KindPullMerged, watermark)
	default:
		return domain.FetchResult{}, fmt.Errorf("%w: unknown activity kind %q", domain.ErrInvalidInput, kind)
	}
}

// defaultBranch resolves and caches the repository's default branch.
// The GraphQL ref query needs a concrete branch name; repositories
// are not all on "main".
func (c *Connector) defaultBranch(ctx context.Context, repo domain.RepositoryIdentity) (string, error) {
	key := repo.String()

	c.mu.Lock()
	if branch, ok := c.branches[key]; ok {
		c.mu.Unlock()
		return branch, nil
	}
	c.mu.Unlock()

	repository, resp, err := c.rest.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return "", fmt.Errorf("get repository %s: %w", key, err)
	}

	branch := repository.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	logger.Debug("Resolved default branch for %s: %s", key, branch)

	c.mu.Lock()
	c.branches[key] = branch
	c.mu.Unlock()
	return branch, nil
}

// collector accumulates records for one fetch, deduplicating by UID
// and dropping anything at or before the watermark. The API may
// return boundary overlap at the watermark; overlap is expected, not
// an error.
type collector struct {
	watermark time.Time
	seen      map[string]bool
	records   []domain.ActivityRecord
	maxTS     time.Time
}

func newCollector(watermark time.Time) *collector {
	return &collector{watermark: watermark, seen: make(map[string]bool)}
}

func (col *collector) add(rec domain.ActivityRecord) {
	if rec.Timestamp.After(col.maxTS) {
		col.maxTS = rec.Timestamp
	}
	if !rec.Timestamp.After(col.watermark) {
		return
	}
	if col.seen[rec.UID] {
		return
	}
	col.seen[rec.UID] = true
	col.records = append(col.records, rec)
}

// result assembles the fetch result. The candidate watermark is the
// maximum timestamp observed, never less than the existing watermark.
func (col *collector) result(kind domain.ActivityKind, cursor string) domain.FetchResult {
	candidate := col.maxTS
	if candidate.Before(col.watermark) {
		candidate = col.watermark
	}
	return domain.FetchResult{
		Kind:               kind,
		Records:            col.records,
		CandidateWatermark: candidate,
		NextCursor:         cursor,
	}
}
