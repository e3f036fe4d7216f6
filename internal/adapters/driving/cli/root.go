// Package cli wires the cobra command surface: run, prune, summary and
// version. Commands resolve their collaborators lazily so tests can
// inject mocks through the package-level service variables.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driving"
	"github.com/sunpy/sunpy-contribution-statistics/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected collaborators. nil means "build from configuration on first
// use"; tests set them directly.
var (
	pipeline driving.Pipeline
	reader   driving.Reader
	params   *domain.Parameters

	// clock supplies "now" for recency windows; tests swap it for a
	// fixed time.
	clock driven.Sleeper = driven.RealSleeper{}
)

var (
	paramsPath string
	cachePath  string
	gitToken   string
	adsToken   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "repostats",
	Short: "Fetch and cache contribution statistics",
	Long: `repostats incrementally fetches commit, issue and pull request
activity from GitHub and citation counts from ADS for a configured set
of repositories, merging everything into a durable cache file.

Tokens are read from --git-token/--ads-token or the GITHUB_TOKEN and
ADS_DEV_KEY environment variables. Without an ADS token, citation
fetches are skipped.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&paramsPath, "parameters", "p", "parameters.toml",
		"path to the TOML parameter file")
	rootCmd.PersistentFlags().StringVarP(&cachePath, "cache", "c", "",
		"cache file path, overriding the parameter file")
	rootCmd.PersistentFlags().StringVarP(&gitToken, "git-token", "g", "",
		"GitHub token (defaults to $GITHUB_TOKEN, prompted when absent)")
	rootCmd.PersistentFlags().StringVarP(&adsToken, "ads-token", "a", "",
		"ADS token (defaults to $ADS_DEV_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
