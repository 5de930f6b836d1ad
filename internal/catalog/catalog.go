// Package catalog provides the mock marketplace records shown on listing
// boards.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vibealong/vibealong/internal/models"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Source lists records of one kind.
type Source interface {
	List(ctx context.Context, kind models.ListingKind) ([]models.Listing, error)
}

type fixtureFile struct {
	Kind     models.ListingKind `yaml:"kind"`
	Listings []models.Listing   `yaml:"listings"`
}

// Catalog is an in-memory Source.
type Catalog struct {
	byKind map[models.ListingKind][]models.Listing
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the catalog embedded in the binary.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Load(builtinFS, "builtin")
	})
	return builtin, builtinErr
}

// Load reads every *.yaml fixture under dir in fsys.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".yaml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	c := &Catalog{byKind: make(map[models.ListingKind][]models.Listing)}
	seen := make(map[string]string)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var file fixtureFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		kind, err := models.ParseListingKind(string(file.Kind))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for i := range file.Listings {
			l := &file.Listings[i]
			l.Kind = kind
			if err := l.Validate(); err != nil {
				return nil, fmt.Errorf("%s listing %d: %w", name, i, err)
			}
			if prev, dup := seen[l.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate listing id %q (first in %s)", name, l.ID, prev)
			}
			seen[l.ID] = name
		}
		c.byKind[kind] = append(c.byKind[kind], file.Listings...)
	}
	return c, nil
}

// List returns a copy of the records of kind.
func (c *Catalog) List(_ context.Context, kind models.ListingKind) ([]models.Listing, error) {
	if _, err := models.ParseListingKind(string(kind)); err != nil {
		return nil, err
	}
	items := c.byKind[kind]
	out := make([]models.Listing, len(items))
	copy(out, items)
	return out, nil
}

// All returns every record, grouped by kind in ListingKinds order.
func (c *Catalog) All() []models.Listing {
	out := make([]models.Listing, 0)
	for _, kind := range models.ListingKinds {
		out = append(out, c.byKind[kind]...)
	}
	return out
}

// Facets returns the facet names used by records of kind.
func Facets(kind models.ListingKind) []string {
	switch kind {
	case models.ListingKindTasks:
		return []string{"platform", "difficulty", "budget"}
	case models.ListingKindFreelancers:
		return []string{"platform", "availability"}
	case models.ListingKindTutorials:
		return []string{"platform", "difficulty"}
	default:
		return nil
	}
}
