package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached entries no longer in the configuration",
	Long: `Removes cached history for repositories and publications that are no
longer listed in the parameter file. A normal run never discards cached
data; this is the only operation that does.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if err := ensureLocalPipeline(); err != nil {
		return err
	}

	removed, err := pipeline.Prune(cmd.Context())
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if len(removed) == 0 {
		cmd.Println("Nothing to prune.")
		return nil
	}
	for _, key := range removed {
		cmd.Printf("Removed %s\n", key)
	}
	return nil
}
