package catalog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibealong/vibealong/internal/filter"
	"github.com/vibealong/vibealong/internal/models"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	for _, kind := range models.ListingKinds {
		items, err := c.List(context.Background(), kind)
		require.NoError(t, err)
		require.NotEmpty(t, items, "kind %s", kind)
		for _, item := range items {
			assert.Equal(t, kind, item.Kind)
			for name := range item.Facets {
				assert.Contains(t, Facets(kind), name, "listing %s", item.ID)
			}
		}
	}
}

func TestListReturnsCopy(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.List(ctx, models.ListingKindTasks)
	require.NoError(t, err)
	first[0].Title = "mutated"

	second, err := c.List(ctx, models.ListingKindTasks)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second[0].Title)
}

func TestListUnknownKind(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	_, err = c.List(context.Background(), "gigs")
	require.Error(t, err)
}

func TestBuiltinFiltering(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	tasks, err := c.List(context.Background(), models.ListingKindTasks)
	require.NoError(t, err)

	got := filter.Apply(tasks, filter.Query{Text: "supabase", Facets: map[string]string{"platform": "bolt", "difficulty": "all"}})
	require.Len(t, got, 1)
	assert.Equal(t, "task-supabase-auth", got[0].ID)
}

func TestLoadRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"fx/a.yaml": {Data: []byte("kind: tasks\nlistings:\n  - id: x\n    title: One\n")},
		"fx/b.yaml": {Data: []byte("kind: tutorials\nlistings:\n  - id: x\n    title: Two\n")},
	}
	_, err := Load(fsys, "fx")
	require.ErrorContains(t, err, "duplicate listing id")
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	fsys := fstest.MapFS{
		"fx/a.yaml": {Data: []byte("kind: gigs\nlistings: []\n")},
	}
	_, err := Load(fsys, "fx")
	require.Error(t, err)
}
