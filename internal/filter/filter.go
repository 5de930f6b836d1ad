// Package filter narrows record lists by free text and facet values.
package filter

import "strings"

// All is the facet value that imposes no constraint.
const All = "all"

// Record is anything the filter can search.
type Record interface {
	SearchFields() []string
	FacetValue(name string) string
}

// Query selects records. The zero Query matches everything.
type Query struct {
	Text   string
	Facets map[string]string
}

// Empty reports whether the query constrains nothing.
func (q Query) Empty() bool {
	if q.Text != "" {
		return false
	}
	for _, v := range q.Facets {
		if !unconstrained(v) {
			return false
		}
	}
	return true
}

// Apply returns the items matching q, in input order. The result never shares
// a backing array with items. Text is matched as typed, spaces included.
func Apply[T Record](items []T, q Query) []T {
	text := strings.ToLower(q.Text)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Match(item, text, q.Facets) {
			out = append(out, item)
		}
	}
	return out
}

// Match reports whether item satisfies a lowercased text needle and facets.
func Match(item Record, text string, facets map[string]string) bool {
	for name, want := range facets {
		if unconstrained(want) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(item.FacetValue(name)), strings.TrimSpace(want)) {
			return false
		}
	}
	if text == "" {
		return true
	}
	for _, field := range item.SearchFields() {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func unconstrained(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, All)
}

// Distinct returns the distinct values of a facet in first-seen order, for
// building filter menus.
func Distinct[T Record](items []T, facet string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		v := item.FacetValue(facet)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
