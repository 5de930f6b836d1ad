package models

import (
	"fmt"
	"strings"
)

// ListingKind names a catalog of mock records.
type ListingKind string

const (
	ListingKindTasks       ListingKind = "tasks"
	ListingKindFreelancers ListingKind = "freelancers"
	ListingKindTutorials   ListingKind = "tutorials"
)

// ListingKinds lists every known catalog.
var ListingKinds = []ListingKind{ListingKindTasks, ListingKindFreelancers, ListingKindTutorials}

// ParseListingKind normalizes and validates a catalog name.
func ParseListingKind(value string) (ListingKind, error) {
	kind := ListingKind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range ListingKinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown listing kind %q", value)
}

// Listing is a record shown on a marketplace board.
type Listing struct {
	ID          string            `json:"id" yaml:"id"`
	Kind        ListingKind       `json:"kind" yaml:"kind"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Facets      map[string]string `json:"facets,omitempty" yaml:"facets,omitempty"`
}

// SearchFields returns the text searched by free-text queries.
func (l Listing) SearchFields() []string {
	fields := make([]string, 0, len(l.Tags)+2)
	fields = append(fields, l.Title, l.Description)
	return append(fields, l.Tags...)
}

// FacetValue returns the value of a facet, or "" when unset.
func (l Listing) FacetValue(name string) string {
	return l.Facets[name]
}

// Validate checks required listing fields.
func (l *Listing) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(l.ID) == "" {
		validation.AddMessage("id", "id is required")
	}
	if _, err := ParseListingKind(string(l.Kind)); err != nil {
		validation.AddMessage("kind", err.Error())
	}
	if strings.TrimSpace(l.Title) == "" {
		validation.AddMessage("title", "title is required")
	}
	return validation.Err()
}
