package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new activity and citations and update the cache",
	Long: `Runs one fetch-merge-cache pass over every configured repository and
publication. Only activity newer than each cached watermark is fetched;
repositories that fail transiently are skipped and retried on the next
run.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if err := ensurePipeline(); err != nil {
		return err
	}

	summary, err := pipeline.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	cmd.Printf("Run %s finished.\n", summary.RunID)
	for _, key := range sortedKeys(summary.NewRecords) {
		cmd.Printf("  %s: %d new records\n", key, summary.NewRecords[key])
	}
	for _, key := range sortedKeys(summary.NewSnapshots) {
		cmd.Printf("  %s: new citation snapshot\n", key)
	}
	if len(summary.NewRecords) == 0 && len(summary.NewSnapshots) == 0 {
		cmd.Println("  Nothing new.")
	}

	if summary.Failed() {
		for _, key := range sortedKeys(summary.Skipped) {
			cmd.Printf("  Skipped %s: %s\n", key, summary.Skipped[key])
		}
		return fmt.Errorf("%d keys were skipped", len(summary.Skipped))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
