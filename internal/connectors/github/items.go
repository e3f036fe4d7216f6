package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/graphql"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// issuesOpenedQuery pages issues in creation order. Creation order is
// append-only, so the end cursor can be persisted across runs.
const issuesOpenedQuery = `
query($owner: String!, $name: String!, $after: String, $pageSize: Int!) {
	repository(owner: $owner, name: $name) {
		issues(first: $pageSize, after: $after, orderBy: {field: CREATED_AT, direction: ASC}) {
			pageInfo {
				hasNextPage
				endCursor
			}
			edges {
				node {
					number
					state
					createdAt
					closedAt
					author {
						login
					}
					labels(first: 25) {
						nodes {
							name
						}
					}
				}
			}
		}
	}
}`

// pullsOpenedQuery is the pull request variant of issuesOpenedQuery.
const pullsOpenedQuery = `
query($owner: String!, $name: String!, $after: String, $pageSize: Int!) {
	repository(owner: $owner, name: $name) {
		pullRequests(first: $pageSize, after: $after, orderBy: {field: CREATED_AT, direction: ASC}) {
			pageInfo {
				hasNextPage
				endCursor
			}
			edges {
				node {
					number
					state
					createdAt
					mergedAt
					author {
						login
					}
					labels(first: 25) {
						nodes {
							name
						}
					}
				}
			}
		}
	}
}`

// issuesClosedQuery pages closed issues newest-updated-first so the
// fetch can stop as soon as items fall behind the watermark. An
// issue's update time is never earlier than its close time, so no
// newly closed issue is missed.
const issuesClosedQuery = `
query($owner: String!, $name: String!, $after: String, $pageSize: Int!) {
	repository(owner: $owner, name: $name) {
		issues(first: $pageSize, after: $after, states: [CLOSED], orderBy: {field: UPDATED_AT, direction: DESC}) {
			pageInfo {
				hasNextPage
				endCursor
			}
			edges {
				node {
					number
					state
					createdAt
					closedAt
					updatedAt
					author {
						login
					}
					labels(first: 25) {
						nodes {
							name
						}
					}
				}
			}
		}
	}
}`

// pullsMergedQuery is the merged pull request variant of
// issuesClosedQuery.
const pullsMergedQuery = `
query($owner: String!, $name: String!, $after: String, $pageSize: Int!) {
	repository(owner: $owner, name: $name) {
		pullRequests(first: $pageSize, after: $after, states: [MERGED], orderBy: {field: UPDATED_AT, direction: DESC}) {
			pageInfo {
				hasNextPage
				endCursor
			}
			edges {
				node {
					number
					state
					createdAt
					mergedAt
					updatedAt
					author {
						login
					}
					labels(first: 25) {
						nodes {
							name
						}
					}
				}
			}
		}
	}
}`

// itemEdge is the shared issue/pull request edge shape. CreatedAt is
// always present; ClosedAt, MergedAt and UpdatedAt depend on the
// query.
type itemEdge struct {
	Node struct {
		Number    int        `json:"number"`
		State     string     `json:"state"`
		CreatedAt time.Time  `json:"createdAt"`
		ClosedAt  *time.Time `json:"closedAt"`
		MergedAt  *time.Time `json:"mergedAt"`
		UpdatedAt time.Time  `json:"updatedAt"`
		Author    *struct {
			Login string `json:"login"`
		} `json:"author"`
		Labels struct {
			Nodes []struct {
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"labels"`
	} `json:"node"`
}

// itemConnection is the response shape for all four item queries; the
// connection field name differs, so both are declared on itemData and
// exactly one is populated.
type itemConnection struct {
	Info  pageInfo   `json:"pageInfo"`
	Edges []itemEdge `json:"edges"`
}

type itemData struct {
	Repository struct {
		Issues       *itemConnection `json:"issues"`
		PullRequests *itemConnection `json:"pullRequests"`
	} `json:"repository"`
}

// connection returns whichever connection the query populated.
func (d *itemData) connection() *itemConnection {
	if d.Repository.Issues != nil {
		return d.Repository.Issues
	}
	return d.Repository.PullRequests
}

// itemUID builds the dedup id for an issue/PR event. Open and close
// events of the same item carry distinct ids.
func itemUID(kind domain.ActivityKind, number int) string {
	switch kind {
	case domain.KindIssueOpened:
		return fmt.Sprintf("issues/%d#opened", number)
	case domain.KindIssueClosed:
		return fmt.Sprintf("issues/%d#closed", number)
	case domain.KindPullOpened:
		return fmt.Sprintf("pulls/%d#opened", number)
	case domain.KindPullMerged:
		return fmt.Sprintf("pulls/%d#merged", number)
	}
	return fmt.Sprintf("items/%d", number)
}

// fetchItemsOpened fetches issue-opened or pull-request-opened
// activity, resuming from the persisted creation-order cursor.
func (c *Connector) fetchItemsOpened(
	ctx context.Context,
	repo domain.RepositoryIdentity,
	kind domain.ActivityKind,
	watermark time.Time,
	resumeCursor string,
) (domain.FetchResult, error) {
	query := issuesOpenedQuery
	if kind == domain.KindPullOpened {
		query = pullsOpenedQuery
	}

	col := newCollector(watermark)
	lastCursor := resumeCursor
	err := c.paginator(repo, query).Each(ctx, resumeCursor, func(edges []itemEdge, endCursor string) error {
		for _, e := range edges {
			col.add(itemRecord(kind, e, e.Node.CreatedAt))
		}
		lastCursor = endCursor
		return nil
	})
	if err != nil {
		return domain.FetchResult{}, err
	}

	logger.Info("Fetched %d new %s records for %s", len(col.records), kind, repo)
	return col.result(kind, lastCursor), nil
}

// fetchItemsResolved fetches issue-closed or pull-request-merged
// activity, walking newest-updated-first and stopping at the
// watermark. No cursor is persisted for these kinds.
func (c *Connector) fetchItemsResolved(
	ctx context.Context,
	repo domain.RepositoryIdentity,
	kind domain.ActivityKind,
	watermark time.Time,
) (domain.FetchResult, error) {
	query := issuesClosedQuery
	if kind == domain.KindPullMerged {
		query = pullsMergedQuery
	}

	col := newCollector(watermark)
	err := c.paginator(repo, query).Each(ctx, "", func(edges []itemEdge, _ string) error {
		for _, e := range edges {
			ts := e.Node.ClosedAt
			if kind == domain.KindPullMerged {
				ts = e.Node.MergedAt
			}
			if ts == nil {
				continue
			}
			col.add(itemRecord(kind, e, *ts))
			if !e.Node.UpdatedAt.After(watermark) {
				// Everything after this point is older than the
				// watermark window.
				return errStopPagination
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPagination) {
		return domain.FetchResult{}, err
	}

	logger.Info("Fetched %d new %s records for %s", len(col.records), kind, repo)
	return col.result(kind, ""), nil
}

// paginator builds an item paginator over the given query.
func (c *Connector) paginator(repo domain.RepositoryIdentity, query string) *graphql.Paginator[itemEdge] {
	fetch := func(ctx context.Context, cursor string) (graphql.Page[itemEdge], error) {
		variables := map[string]any{
			"owner":    repo.Owner,
			"name":     repo.Name,
			"pageSize": c.pageSize,
		}
		if cursor != "" {
			variables["after"] = cursor
		}

		var data itemData
		if _, err := c.gql.Do(ctx, query, variables, &data); err != nil {
			return graphql.Page[itemEdge]{}, err
		}
		conn := data.connection()
		if conn == nil {
			return graphql.Page[itemEdge]{}, fmt.Errorf("%w: repository %s missing from response", domain.ErrNotFound, repo)
		}
		return graphql.Page[itemEdge]{
			Items:     conn.Edges,
			EndCursor: conn.Info.EndCursor,
			HasNext:   conn.Info.HasNextPage,
		}, nil
	}

	return &graphql.Paginator[itemEdge]{
		Source:   "github",
		Key:      repo.String(),
		Fetch:    fetch,
		Sleeper:  c.sleeper,
		MaxPages: c.maxPages,
	}
}

// itemRecord maps an edge to a domain record at the given timestamp.
func itemRecord(kind domain.ActivityKind, e itemEdge, ts time.Time) domain.ActivityRecord {
	author := ""
	if e.Node.Author != nil {
		author = e.Node.Author.Login
	}
	labels := make([]string, 0, len(e.Node.Labels.Nodes))
	for _, l := range e.Node.Labels.Nodes {
		labels = append(labels, l.Name)
	}
	return domain.ActivityRecord{
		UID:       itemUID(kind, e.Node.Number),
		Kind:      kind,
		Timestamp: ts.UTC(),
		Author:    author,
		Labels:    labels,
		Open:      e.Node.State == "OPEN",
	}
}
