package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sunpy/sunpy-contribution-statistics/internal/adapters/driven/config/file"
	"github.com/sunpy/sunpy-contribution-statistics/internal/adapters/driven/storage/cachefile"
	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/ads"
	"github.com/sunpy/sunpy-contribution-statistics/internal/connectors/github"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/ports/driven"
	"github.com/sunpy/sunpy-contribution-statistics/internal/core/services"
)

// loadParameters loads the parameter file once, applying flag
// overrides.
func loadParameters() error {
	if params != nil {
		return nil
	}
	loaded, err := file.Load(paramsPath)
	if err != nil {
		return err
	}
	if cachePath != "" {
		loaded.CachePath = cachePath
	}
	params = loaded
	return nil
}

// ensurePipeline builds the pipeline from configuration unless a test
// injected one. Tokens are treated as opaque: they are passed to the
// connectors and never logged or written anywhere.
func ensurePipeline() error {
	if pipeline != nil {
		return nil
	}
	if err := loadParameters(); err != nil {
		return err
	}

	git, err := resolveGitToken()
	if err != nil {
		return err
	}
	activity := github.New(git, clock, params.MaxPages)

	var citations driven.CitationSource
	if tok := resolveADSToken(); tok != "" {
		citations = ads.New(tok, clock, params.MaxPages)
	}

	store := cachefile.NewStore(params.CachePath)
	svc := services.NewPipelineService(params, activity, citations, store)
	pipeline = svc
	reader = svc
	return nil
}

// ensureLocalPipeline builds a pipeline without source connectors for
// commands that only touch the cache. No tokens are required.
func ensureLocalPipeline() error {
	if pipeline != nil {
		return nil
	}
	if err := loadParameters(); err != nil {
		return err
	}
	store := cachefile.NewStore(params.CachePath)
	svc := services.NewPipelineService(params, nil, nil, store)
	pipeline = svc
	reader = svc
	return nil
}

// ensureReader builds a read-only service for query commands. No
// tokens are needed to read the cache.
func ensureReader() error {
	if err := loadParameters(); err != nil {
		return err
	}
	if reader == nil {
		store := cachefile.NewStore(params.CachePath)
		reader = services.NewPipelineService(params, nil, nil, store)
	}
	return nil
}

// resolveGitToken returns the GitHub token from the flag, then the
// environment, then an interactive prompt when stdin is a terminal.
func resolveGitToken() (string, error) {
	if gitToken != "" {
		return gitToken, nil
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no GitHub token: pass --git-token or set GITHUB_TOKEN")
	}
	fmt.Fprint(os.Stderr, "GitHub token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return "", errors.New("no GitHub token provided")
	}
	return tok, nil
}

// resolveADSToken returns the ADS token from the flag or environment.
// ADS is optional, so there is no prompt: an absent token just skips
// citation fetches.
func resolveADSToken() string {
	if adsToken != "" {
		return adsToken
	}
	return os.Getenv("ADS_DEV_KEY")
}
