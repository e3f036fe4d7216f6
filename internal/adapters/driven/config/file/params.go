// Package file loads run parameters from a TOML file.
package file

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/sunpy/sunpy-contribution-statistics/internal/core/domain"
)

// Defaults applied when the file omits optional keys.
const (
	DefaultCachePath     = "cache/statistics.json"
	DefaultRecentCommits = 30 // days
	DefaultRecentItems   = 7  // days
	DefaultRollingWindow = 13 // months
	DefaultMaxPages      = 500
)

// fileParams is the TOML schema. Credentials are deliberately absent:
// tokens come from flags or the environment, never from the parameter
// file.
type fileParams struct {
	RepoOwner        string     `toml:"repo_owner"`
	Cache            string     `toml:"cache"`
	AgeRecentCommit  int        `toml:"age_recent_commit"`
	AgeRecentIssuePR int        `toml:"age_recent_issue_pr"`
	WindowAvg        int        `toml:"window_avg"`
	MaxPages         int        `toml:"max_pages"`
	Bots             []string   `toml:"bots"`
	CitationDecrease string     `toml:"citation_decrease"`
	Repos            []fileRepo `toml:"repos"`
}

type fileRepo struct {
	Name     string   `toml:"name"`
	Bibs     []string `toml:"bibs"`
	BibNames []string `toml:"bib_names"`
	Labels   []string `toml:"labels"`
}

// Load reads and validates parameters from a TOML file.
func Load(path string) (*domain.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	var raw fileParams
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}
	return raw.toParameters()
}

func (f *fileParams) toParameters() (*domain.Parameters, error) {
	params := &domain.Parameters{
		Owner:            f.RepoOwner,
		CachePath:        f.Cache,
		RecentCommitDays: f.AgeRecentCommit,
		RecentItemDays:   f.AgeRecentIssuePR,
		RollingWindow:    f.WindowAvg,
		MaxPages:         f.MaxPages,
		Bots:             f.Bots,
		CitationDecrease: domain.CitationDecreasePolicy(f.CitationDecrease),
	}
	if params.CachePath == "" {
		params.CachePath = DefaultCachePath
	}
	if params.RecentCommitDays == 0 {
		params.RecentCommitDays = DefaultRecentCommits
	}
	if params.RecentItemDays == 0 {
		params.RecentItemDays = DefaultRecentItems
	}
	if params.RollingWindow == 0 {
		params.RollingWindow = DefaultRollingWindow
	}
	if params.MaxPages == 0 {
		params.MaxPages = DefaultMaxPages
	}
	if params.Bots == nil {
		params.Bots = domain.DefaultBots()
	}

	for _, r := range f.Repos {
		if len(r.BibNames) > 0 && len(r.BibNames) != len(r.Bibs) {
			return nil, fmt.Errorf("%w: repo %s has %d bib_names for %d bibs",
				domain.ErrInvalidInput, r.Name, len(r.BibNames), len(r.Bibs))
		}
		repo := domain.NewRepositoryIdentity(f.RepoOwner, r.Name)
		target := domain.RepositoryTarget{Repository: repo, Labels: r.Labels}
		for i, bib := range r.Bibs {
			link := domain.PublicationLink{
				Publication: domain.PublicationIdentity(bib),
				Repository:  repo,
			}
			if i < len(r.BibNames) {
				link.DisplayName = r.BibNames[i]
			}
			target.Publications = append(target.Publications, link)
		}
		params.Targets = append(params.Targets, target)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}
