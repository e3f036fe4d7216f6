package domain

import "sort"

// CachedDataset is the durable aggregate: activity series for all
// repositories plus citation series for all publications. It is loaded
// at pipeline start (empty on first run), mutated only by the merge
// engine, and persisted atomically.
type CachedDataset struct {
	// Activity maps repository key ("owner/name") to its series.
	Activity map[string]*ActivitySeries `json:"activity"`

	// Citations maps publication identity to its series.
	Citations map[string]*CitationSeries `json:"citations"`
}

// NewCachedDataset creates an empty dataset.
func NewCachedDataset() *CachedDataset {
	return &CachedDataset{
		Activity:  make(map[string]*ActivitySeries),
		Citations: make(map[string]*CitationSeries),
	}
}

// ActivityFor returns the series for a repository, creating an empty
// one if absent.
func (d *CachedDataset) ActivityFor(repo RepositoryIdentity) *ActivitySeries {
	key := repo.String()
	if d.Activity == nil {
		d.Activity = make(map[string]*ActivitySeries)
	}
	s, ok := d.Activity[key]
	if !ok {
		s = NewActivitySeries()
		d.Activity[key] = s
	}
	return s
}

// CitationsFor returns the series for a publication, creating an empty
// one if absent.
func (d *CachedDataset) CitationsFor(pub PublicationIdentity) *CitationSeries {
	key := pub.String()
	if d.Citations == nil {
		d.Citations = make(map[string]*CitationSeries)
	}
	s, ok := d.Citations[key]
	if !ok {
		s = NewCitationSeries()
		d.Citations[key] = s
	}
	return s
}

// RepositoryKeys returns the cached repository keys in sorted order.
func (d *CachedDataset) RepositoryKeys() []string {
	keys := make([]string, 0, len(d.Activity))
	for k := range d.Activity {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PublicationKeys returns the cached publication keys in sorted order.
func (d *CachedDataset) PublicationKeys() []string {
	keys := make([]string, 0, len(d.Citations))
	for k := range d.Citations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Prune removes cached entries whose keys are not in the given sets.
// Normal runs never call this; it backs the explicit prune operation
// only.
func (d *CachedDataset) Prune(repos map[string]bool, pubs map[string]bool) (removed []string) {
	for k := range d.Activity {
		if !repos[k] {
			delete(d.Activity, k)
			removed = append(removed, k)
		}
	}
	for k := range d.Citations {
		if !pubs[k] {
			delete(d.Citations, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}
