package domain

import "fmt"

// CitationDecreasePolicy controls how a citation count lower than the
// previously recorded one is handled. The source is authoritative
// either way; the policy only decides whether to log the correction.
type CitationDecreasePolicy string

// Supported citation decrease policies.
const (
	// DecreaseAccept records the lower count silently.
	DecreaseAccept CitationDecreasePolicy = "accept"

	// DecreaseWarn records the lower count and logs a warning for
	// operator review. This is the default.
	DecreaseWarn CitationDecreasePolicy = "warn"
)

// RepositoryTarget is one configured repository with its associated
// publications and label set.
type RepositoryTarget struct {
	Repository RepositoryIdentity

	// Publications backing this repository (ADS bibcodes). May be empty.
	Publications []PublicationLink

	// Labels are the issue/PR labels to tally in derived statistics.
	Labels []string
}

// Parameters is the validated run configuration, consumed read-only by
// the orchestrator. Schema validation happens in the config adapter;
// by the time a Parameters value exists it is internally consistent.
type Parameters struct {
	Owner   string
	Targets []RepositoryTarget

	// CachePath is where the cached dataset is persisted.
	CachePath string

	// RecentCommitDays and RecentItemDays are the recency windows for
	// derived statistics (days before present).
	RecentCommitDays int
	RecentItemDays   int

	// RollingWindow is the width of the rolling-average window for
	// per-month series, enforced odd at query time.
	RollingWindow int

	// MaxPages caps pages per paginated fetch.
	MaxPages int

	// Bots are author identities excluded from author statistics.
	Bots []string

	// CitationDecrease selects the decrease policy, DecreaseWarn when
	// unset.
	CitationDecrease CitationDecreasePolicy
}

// Validate checks cross-field invariants that the config adapter
// cannot express while decoding.
func (p *Parameters) Validate() error {
	if p.Owner == "" {
		return fmt.Errorf("%w: repo_owner is required", ErrInvalidInput)
	}
	if len(p.Targets) == 0 {
		return fmt.Errorf("%w: at least one repository is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(p.Targets))
	for _, t := range p.Targets {
		if t.Repository.IsZero() {
			return fmt.Errorf("%w: repository identity missing", ErrInvalidInput)
		}
		key := t.Repository.String()
		if seen[key] {
			return fmt.Errorf("%w: duplicate repository %s", ErrInvalidInput, key)
		}
		seen[key] = true
	}
	switch p.CitationDecrease {
	case "", DecreaseAccept, DecreaseWarn:
	default:
		return fmt.Errorf("%w: unknown citation_decrease policy %q", ErrInvalidInput, p.CitationDecrease)
	}
	return nil
}

// DecreasePolicy returns the configured policy, defaulting to warn.
func (p *Parameters) DecreasePolicy() CitationDecreasePolicy {
	if p.CitationDecrease == "" {
		return DecreaseWarn
	}
	return p.CitationDecrease
}

// Publications returns the deduplicated publication links across all
// targets, preserving first-seen order.
func (p *Parameters) Publications() []PublicationLink {
	var out []PublicationLink
	seen := make(map[PublicationIdentity]bool)
	for _, t := range p.Targets {
		for _, link := range t.Publications {
			if seen[link.Publication] {
				continue
			}
			seen[link.Publication] = true
			out = append(out, link)
		}
	}
	return out
}

// DefaultBots are author identities filtered from author statistics
// unless the configuration overrides them.
func DefaultBots() []string {
	return []string{
		"dependabot[bot]",
		"github-actions",
		"github-actions[bot]",
		"meeseeksmachine",
		"pre-commit-ci[bot]",
		"codetriage-readme-bot",
	}
}
