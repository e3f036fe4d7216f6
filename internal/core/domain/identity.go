package domain

import "strings"

// RepositoryIdentity is the stable key for a code-hosting repository.
// It partitions all cached activity.
type RepositoryIdentity struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// NewRepositoryIdentity creates a repository identity from owner and name.
func NewRepositoryIdentity(owner, name string) RepositoryIdentity {
	return RepositoryIdentity{Owner: owner, Name: name}
}

// ParseRepositoryIdentity parses an "owner/name" string.
// Returns ErrInvalidInput if the string is not of that form.
func ParseRepositoryIdentity(s string) (RepositoryIdentity, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return RepositoryIdentity{}, ErrInvalidInput
	}
	return RepositoryIdentity{Owner: owner, Name: name}, nil
}

// String returns the canonical "owner/name" form, used as the cache
// partition key.
func (r RepositoryIdentity) String() string {
	return r.Owner + "/" + r.Name
}

// IsZero reports whether the identity is unset.
func (r RepositoryIdentity) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

// PublicationIdentity is the stable key for a citable work, e.g. an
// ADS bibcode. A publication may back multiple repositories and a
// repository may be described by several publications; that relation
// is carried by PublicationLink, not embedded in either identity.
type PublicationIdentity string

// String returns the identity as a plain string.
func (p PublicationIdentity) String() string {
	return string(p)
}

// PublicationLink relates one publication to one repository. The full
// many-to-many relation is a list of links, configured externally and
// free to change without migrating cached history.
type PublicationLink struct {
	Publication PublicationIdentity `json:"publication"`
	Repository  RepositoryIdentity  `json:"repository"`

	// DisplayName is an optional human-readable label for reports.
	DisplayName string `json:"display_name,omitempty"`
}
