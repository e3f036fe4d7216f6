package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/graphql"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// fakeSleeper advances a virtual clock instead of blocking.
type fakeSleeper struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeSleeper() *fakeSleeper {
	return &fakeSleeper{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	return nil
}

func (f *fakeSleeper) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// fakeGitHub serves the REST endpoints the connector touches plus a
// scripted GraphQL endpoint.
type fakeGitHub struct {
	t *testing.T

	// graphqlPages maps the page ordinal per query family to a raw
	// data payload.
	mu            sync.Mutex
	graphqlCalls  []map[string]any
	graphqlSwitch func(query string, variables map[string]any) string

	userStatus    int
	defaultBranch string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		if f.userStatus != 0 && f.userStatus != http.StatusOK {
			w.WriteHeader(f.userStatus)
			fmt.Fprint(w, `{"message":"Bad credentials"}`)
			return
		}
		fmt.Fprint(w, `{"login":"octocat"}`)
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"default_branch":%q}`, f.defaultBranch)
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.graphqlCalls = append(f.graphqlCalls, req.Variables)
		payload := f.graphqlSwitch(req.Query, req.Variables)
		f.mu.Unlock()

		w.Header().Set(graphql.HeaderRateRemaining, "4000")
		w.Header().Set(graphql.HeaderRateLimit, "5000")
		fmt.Fprintf(w, `{"data":%s}`, payload)
	})
	return mux
}

func (f *fakeGitHub) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.graphqlCalls)
}

// newTestConnector wires a connector against the fake server.
func newTestConnector(t *testing.T, fake *fakeGitHub) *Connector {
	t.Helper()
	if fake.defaultBranch == "" {
		fake.defaultBranch = "main"
	}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	sleeper := newFakeSleeper()
	limiter := graphql.NewRateLimiterWithRate(sleeper, 1000, 1000, graphql.MinBuffer)
	gql := graphql.NewClientWithHTTP(server.URL+"/graphql", server.Client(), limiter)

	rest := gh.NewClient(server.Client())
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	rest.BaseURL = base

	return NewWithClients(gql, rest, sleeper, 50)
}

func commitPage(hasNext bool, endCursor string, commits ...string) string {
	edges := make([]string, 0, len(commits))
	for _, c := range commits {
		// format: "oid|date|name|login"
		parts := strings.Split(c, "|")
		login := "null"
		if parts[3] != "" {
			login = fmt.Sprintf(`{"login":%q}`, parts[3])
		}
		edges = append(edges, fmt.Sprintf(
			`{"node":{"oid":%q,"authoredDate":%q,"author":{"name":%q,"user":%s}}}`,
			parts[0], parts[1], parts[2], login))
	}
	return fmt.Sprintf(
		`{"repository":{"ref":{"target":{"history":{"pageInfo":{"hasNextPage":%t,"endCursor":%q},"edges":[%s]}}}}}`,
		hasNext, endCursor, strings.Join(edges, ","))
}

func TestFetchCommits(t *testing.T) {
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(_ string, variables map[string]any) string {
		if variables["after"] == nil {
			return commitPage(true, "c1",
				"sha1|2024-01-01T10:00:00Z|Alice|alice",
				"sha2|2024-01-02T10:00:00Z|Bob|bob")
		}
		return commitPage(false, "c2",
			"sha2|2024-01-02T10:00:00Z|Bob|bob", // boundary overlap, deduped
			"sha3|2024-01-03T10:00:00Z|Carol|")
	}
	c := newTestConnector(t, fake)

	result, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.KindCommit,
		time.Time{},
		"",
	)
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, "sha1", result.Records[0].UID)
	assert.Equal(t, "alice", result.Records[0].Author)
	assert.Equal(t, "Carol", result.Records[2].Author, "falls back to git name without a GitHub user")
	assert.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), result.CandidateWatermark)
	assert.Empty(t, result.NextCursor, "commit cursors are not carried across runs")
	assert.Equal(t, 2, fake.calls())
}

func TestFetchCommitsCursorsStayWithinOneRun(t *testing.T) {
	// History cursors are only valid for identical connection
	// arguments, and since moves with the watermark between runs. The
	// fake mimics that: a cursor presented against a different since
	// than it was minted under fails the request.
	minted := make(map[string]any) // cursor -> since it was minted under
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(_ string, variables map[string]any) string {
		since := variables["since"]
		if after := variables["after"]; after != nil {
			cursor := after.(string)
			mintedSince, known := minted[cursor]
			require.True(t, known, "cursor %q was never minted", cursor)
			require.Equal(t, mintedSince, since, "cursor %q replayed against a different since", cursor)
		}
		if since == nil {
			if variables["after"] == nil {
				minted["r1c1"] = since
				return commitPage(true, "r1c1",
					"sha1|2024-01-01T10:00:00Z|Alice|alice",
					"sha2|2024-01-02T10:00:00Z|Bob|bob")
			}
			minted["r1c2"] = since
			return commitPage(false, "r1c2", "sha3|2024-01-03T10:00:00Z|Carol|carol")
		}
		minted["r2c1"] = since
		return commitPage(false, "r2c1", "sha4|2024-01-04T10:00:00Z|Alice|alice")
	}
	c := newTestConnector(t, fake)
	repo := domain.NewRepositoryIdentity("sunpy", "sunpy")

	first, err := c.FetchActivity(context.Background(), repo, domain.KindCommit, time.Time{}, "")
	require.NoError(t, err)
	require.Len(t, first.Records, 3)
	assert.Empty(t, first.NextCursor)

	// Second run resumes from the persisted watermark and cursor, the
	// way the merge engine stores them.
	second, err := c.FetchActivity(context.Background(), repo, domain.KindCommit,
		first.CandidateWatermark, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	assert.Equal(t, "sha4", second.Records[0].UID)
}

func TestFetchCommitsRespectsWatermark(t *testing.T) {
	watermark := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(_ string, variables map[string]any) string {
		// Server-side since filter is passed through.
		assert.Equal(t, "2024-01-02T10:00:00Z", variables["since"])
		return commitPage(false, "c1",
			"sha2|2024-01-02T10:00:00Z|Bob|bob", // at the watermark: excluded
			"sha3|2024-01-03T10:00:00Z|Carol|carol")
	}
	c := newTestConnector(t, fake)

	result, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.KindCommit,
		watermark,
		"",
	)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "sha3", result.Records[0].UID)
}

func itemPage(conn string, hasNext bool, endCursor string, items ...string) string {
	edges := make([]string, 0, len(items))
	for _, it := range items {
		edges = append(edges, it)
	}
	return fmt.Sprintf(
		`{"repository":{%q:{"pageInfo":{"hasNextPage":%t,"endCursor":%q},"edges":[%s]}}}`,
		conn, hasNext, endCursor, strings.Join(edges, ","))
}

func issueEdge(number int, state, createdAt, closedAt, updatedAt string, labels ...string) string {
	closed := "null"
	if closedAt != "" {
		closed = fmt.Sprintf("%q", closedAt)
	}
	labelNodes := make([]string, 0, len(labels))
	for _, l := range labels {
		labelNodes = append(labelNodes, fmt.Sprintf(`{"name":%q}`, l))
	}
	return fmt.Sprintf(
		`{"node":{"number":%d,"state":%q,"createdAt":%q,"closedAt":%s,"updatedAt":%q,"author":{"login":"alice"},"labels":{"nodes":[%s]}}}`,
		number, state, createdAt, closed, updatedAt, strings.Join(labelNodes, ","))
}

func TestFetchIssuesOpened(t *testing.T) {
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(query string, _ map[string]any) string {
		require.Contains(t, query, "issues(")
		require.Contains(t, query, "CREATED_AT")
		return itemPage("issues", false, "i1",
			issueEdge(1, "OPEN", "2024-02-01T00:00:00Z", "", "2024-02-01T00:00:00Z", "bug"),
			issueEdge(2, "CLOSED", "2024-02-02T00:00:00Z", "2024-02-10T00:00:00Z", "2024-02-10T00:00:00Z"),
		)
	}
	c := newTestConnector(t, fake)

	result, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.KindIssueOpened,
		time.Time{},
		"",
	)
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "issues/1#opened", result.Records[0].UID)
	assert.Equal(t, []string{"bug"}, result.Records[0].Labels)
	assert.True(t, result.Records[0].Open)
	assert.False(t, result.Records[1].Open)
	assert.Equal(t, "i1", result.NextCursor)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), result.CandidateWatermark)
}

func TestFetchIssuesClosedStopsAtWatermark(t *testing.T) {
	watermark := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(query string, _ map[string]any) string {
		require.Contains(t, query, "UPDATED_AT")
		require.Contains(t, query, "CLOSED")
		// Newest-updated-first; the second item is behind the
		// watermark, so page 2 must never be requested.
		return itemPage("issues", true, "i1",
			issueEdge(9, "CLOSED", "2024-01-01T00:00:00Z", "2024-03-05T00:00:00Z", "2024-03-05T00:00:00Z"),
			issueEdge(3, "CLOSED", "2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z", "2024-02-01T00:00:00Z"),
		)
	}
	c := newTestConnector(t, fake)

	result, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.KindIssueClosed,
		watermark,
		"",
	)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "issues/9#closed", result.Records[0].UID)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), result.CandidateWatermark)
	assert.Empty(t, result.NextCursor, "update-ordered cursors are never persisted")
	assert.Equal(t, 1, fake.calls())
}

func TestFetchPullsMerged(t *testing.T) {
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(query string, _ map[string]any) string {
		require.Contains(t, query, "pullRequests(")
		require.Contains(t, query, "MERGED")
		return itemPage("pullRequests", false, "p1",
			`{"node":{"number":7,"state":"MERGED","createdAt":"2024-04-01T00:00:00Z","mergedAt":"2024-04-03T00:00:00Z","updatedAt":"2024-04-03T00:00:00Z","author":{"login":"bob"},"labels":{"nodes":[]}}}`,
		)
	}
	c := newTestConnector(t, fake)

	result, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.KindPullMerged,
		time.Time{},
		"",
	)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "pulls/7#merged", result.Records[0].UID)
	assert.Equal(t, "bob", result.Records[0].Author)
	assert.Equal(t, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), result.Records[0].Timestamp)
}

func TestValidate(t *testing.T) {
	t.Run("accepts a valid token", func(t *testing.T) {
		fake := &fakeGitHub{t: t}
		c := newTestConnector(t, fake)
		assert.NoError(t, c.Validate(context.Background()))
	})

	t.Run("rejected token is fatal", func(t *testing.T) {
		fake := &fakeGitHub{t: t, userStatus: http.StatusUnauthorized}
		c := newTestConnector(t, fake)
		err := c.Validate(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsFatal(err))
	})
}

func TestFetchActivityUnknownKind(t *testing.T) {
	fake := &fakeGitHub{t: t}
	fake.graphqlSwitch = func(string, map[string]any) string { return "{}" }
	c := newTestConnector(t, fake)

	_, err := c.FetchActivity(
		context.Background(),
		domain.NewRepositoryIdentity("sunpy", "sunpy"),
		domain.ActivityKind("release"),
		time.Time{},
		"",
	)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDefaultBranchCached(t *testing.T) {
	fake := &fakeGitHub{t: t, defaultBranch: "trunk"}
	fake.graphqlSwitch = func(_ string, variables map[string]any) string {
		assert.Equal(t, "refs/heads/trunk", variables["branch"])
		return commitPage(false, "c1")
	}
	c := newTestConnector(t, fake)

	repo := domain.NewRepositoryIdentity("sunpy", "sunpy")
	branch, err := c.defaultBranch(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	// Cached on second resolution.
	branch, err = c.defaultBranch(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	_, err = c.FetchActivity(context.Background(), repo, domain.KindCommit, time.Time{}, "")
	require.NoError(t, err)
}
