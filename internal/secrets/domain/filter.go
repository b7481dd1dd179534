package domain

import (
	"time"
)

// Filter narrows list and scan operations. Zero-valued fields are ignored.
type Filter struct {
	// Type restricts results to a single secret type.
	Type SecretType
	// Status restricts results to a single lifecycle state.
	Status SecretStatus
	// Owner restricts results to secrets with this owner.
	Owner string
	// Tags requires every listed key/value pair to be present on the secret.
	Tags map[string]string
	// ExpiresBefore restricts results to secrets whose expiry is before this instant.
	ExpiresBefore *time.Time
}

// Matches reports whether the secret satisfies every set field of the filter.
func (f Filter) Matches(s *Secret) bool {
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Owner != "" && s.Owner != f.Owner {
		return false
	}
	if f.ExpiresBefore != nil {
		if s.ExpiresAt == nil || !s.ExpiresAt.Before(*f.ExpiresBefore) {
			return false
		}
	}
	return s.MatchesTags(f.Tags)
}

// SearchFields selects which fields a search query matches against.
type SearchFields struct {
	Name        bool
	Description bool
	Tags        bool
}

// DefaultSearchFields matches against name, description, and tags.
func DefaultSearchFields() SearchFields {
	return SearchFields{Name: true, Description: true, Tags: true}
}

// ParseSearchFields builds SearchFields from field names. An empty list means
// the default set. Unknown field names are rejected.
func ParseSearchFields(names []string) (SearchFields, error) {
	if len(names) == 0 {
		return DefaultSearchFields(), nil
	}
	var fields SearchFields
	for _, n := range names {
		switch n {
		case "name":
			fields.Name = true
		case "description":
			fields.Description = true
		case "tags":
			fields.Tags = true
		default:
			return SearchFields{}, ErrUnknownSearchField
		}
	}
	return fields, nil
}
