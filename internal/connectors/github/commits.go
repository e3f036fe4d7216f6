package github

import (
	"context"
	"time"

	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/graphql"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// commitHistoryQuery pages through the default branch's commit
// history. since is a server-side filter, so incremental runs only
// transfer commits past the watermark.
//
// Cursors are only valid for identical connection arguments, and since
// changes whenever the watermark advances, so commit cursors are never
// carried across runs: each run starts from the head of the since
// window and the cursor lives only within that run's pagination.
const commitHistoryQuery = `
query($owner: String!, $name: String!, $branch: String!, $after: String, $pageSize: Int!, $since: GitTimestamp) {
	repository(owner: $owner, name: $name) {
		ref(qualifiedName: $branch) {
			target {
				... on Commit {
					history(first: $pageSize, after: $after, since: $since) {
						pageInfo {
							hasNextPage
							endCursor
						}
						edges {
							node {
								oid
								authoredDate
								author {
									name
									user {
										login
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// commitHistoryData is the response shape for commitHistoryQuery.
type commitHistoryData struct {
	Repository struct {
		Ref struct {
			Target struct {
				History struct {
					PageInfo pageInfo     `json:"pageInfo"`
					Edges    []commitEdge `json:"edges"`
				} `json:"history"`
			} `json:"target"`
		} `json:"ref"`
	} `json:"repository"`
}

type commitEdge struct {
	Node struct {
		OID          string    `json:"oid"`
		AuthoredDate time.Time `json:"authoredDate"`
		Author       struct {
			Name string `json:"name"`
			User *struct {
				Login string `json:"login"`
			} `json:"user"`
		} `json:"author"`
	} `json:"node"`
}

// pageInfo is the shared GraphQL pagination block.
type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

func (c *Connector) fetchCommits(
	ctx context.Context,
	repo domain.RepositoryIdentity,
	watermark time.Time,
) (domain.FetchResult, error) {
	branch, err := c.defaultBranch(ctx, repo)
	if err != nil {
		return domain.FetchResult{}, err
	}

	fetch := func(ctx context.Context, cursor string) (graphql.Page[commitEdge], error) {
		variables := map[string]any{
			"owner":    repo.Owner,
			"name":     repo.Name,
			"branch":   "refs/heads/" + branch,
			"pageSize": c.pageSize,
		}
		if cursor != "" {
			variables["after"] = cursor
		}
		if !watermark.IsZero() {
			variables["since"] = watermark.UTC().Format(time.RFC3339)
		}

		var data commitHistoryData
		if _, err := c.gql.Do(ctx, commitHistoryQuery, variables, &data); err != nil {
			return graphql.Page[commitEdge]{}, err
		}
		history := data.Repository.Ref.Target.History
		return graphql.Page[commitEdge]{
			Items:     history.Edges,
			EndCursor: history.PageInfo.EndCursor,
			HasNext:   history.PageInfo.HasNextPage,
		}, nil
	}

	p := &graphql.Paginator[commitEdge]{
		Source:   "github",
		Key:      repo.String(),
		Fetch:    fetch,
		Sleeper:  c.sleeper,
		MaxPages: c.maxPages,
	}

	col := newCollector(watermark)
	err = p.Each(ctx, "", func(edges []commitEdge, _ string) error {
		for _, e := range edges {
			author := e.Node.Author.Name
			if e.Node.Author.User != nil && e.Node.Author.User.Login != "" {
				author = e.Node.Author.User.Login
			}
			col.add(domain.ActivityRecord{
				UID:       e.Node.OID,
				Kind:      domain.KindCommit,
				Timestamp: e.Node.AuthoredDate.UTC(),
				Author:    author,
			})
		}
		return nil
	})
	if err != nil {
		return domain.FetchResult{}, err
	}

	logger.Info("Fetched %d new commits for %s", len(col.records), repo)
	return col.result(domain.KindCommit, ""), nil
}
