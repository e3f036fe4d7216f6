package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/services"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print derived statistics from the cache",
	Long: `Computes derived statistics from the cached dataset without fetching
anything: totals, recent-window activity, author counts and citation
counts per configured repository.`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	if err := ensureReader(); err != nil {
		return err
	}

	dataset, err := reader.Dataset(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading cache: %w", err)
	}

	now := clock.Now().UTC()
	commitCutoff := now.AddDate(0, 0, -params.RecentCommitDays)
	itemCutoff := now.AddDate(0, 0, -params.RecentItemDays)

	for _, target := range params.Targets {
		key := target.Repository.String()
		series, ok := dataset.Activity[key]
		if !ok {
			cmd.Printf("%s: no cached data (run `repostats run` first)\n", key)
			continue
		}
		printRepoSummary(cmd, key, series, target, commitCutoff, itemCutoff)
		for _, link := range target.Publications {
			printCitationSummary(cmd, dataset, link)
		}
	}
	return nil
}

func printRepoSummary(
	cmd *cobra.Command,
	key string,
	series *domain.ActivitySeries,
	target domain.RepositoryTarget,
	commitCutoff, itemCutoff time.Time,
) {
	commits := services.RecordsOfKind(series, domain.KindCommit)
	issuesOpened := services.RecordsOfKind(series, domain.KindIssueOpened)
	pullsOpened := services.RecordsOfKind(series, domain.KindPullOpened)
	pullsMerged := services.RecordsOfKind(series, domain.KindPullMerged)

	cmd.Printf("%s\n", key)
	cmd.Printf("  Commits: %d total, %d in the last %d days\n",
		len(commits), services.CountSince(commits, commitCutoff), params.RecentCommitDays)
	cmd.Printf("  Authors: %d unique, %d new in the last %d days\n",
		len(services.UniqueAuthors(commits, params.Bots)),
		len(services.NewAuthorsSince(commits, params.Bots, commitCutoff)),
		params.RecentCommitDays)
	cmd.Printf("  Issues: %d opened (%d open), %d in the last %d days\n",
		len(issuesOpened), services.OpenCount(issuesOpened),
		services.CountSince(issuesOpened, itemCutoff), params.RecentItemDays)
	cmd.Printf("  Pull requests: %d opened (%d open), %d merged\n",
		len(pullsOpened), services.OpenCount(pullsOpened), len(pullsMerged))

	if len(target.Labels) > 0 {
		tally := services.LabelTally(issuesOpened, target.Labels)
		for _, label := range target.Labels {
			cmd.Printf("  Open %q issues: %d\n", label, tally[label])
		}
	}
}

func printCitationSummary(cmd *cobra.Command, dataset *domain.CachedDataset, link domain.PublicationLink) {
	series, ok := dataset.Citations[link.Publication.String()]
	if !ok {
		return
	}
	latest, ok := series.Latest()
	if !ok {
		return
	}
	name := link.DisplayName
	if name == "" {
		name = link.Publication.String()
	}
	cmd.Printf("  Citations of %s: %d (as of %s)\n", name, latest.Count, latest.FetchDate)
}
