package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/catalog"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/filter"
	"github.com/vibealong/vibealong/internal/models"
)

var (
	listingsQuery   string
	listingsFacets  []string
	listingsBuiltin bool
)

func init() {
	rootCmd.AddCommand(listingsCmd)

	listingsCmd.Flags().StringVarP(&listingsQuery, "query", "q", "", "case-insensitive text search")
	listingsCmd.Flags().StringSliceVar(&listingsFacets, "facet", nil, "facet filter name=value (repeatable; value \"all\" disables)")
	listingsCmd.Flags().BoolVar(&listingsBuiltin, "builtin", false, "read the builtin fixtures instead of the database")
}

var listingsCmd = &cobra.Command{
	Use:       "listings <tasks|freelancers|tutorials>",
	Short:     "Search marketplace listings",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"tasks", "freelancers", "tutorials"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		kind, err := models.ParseListingKind(args[0])
		if err != nil {
			return err
		}
		query, err := parseFacetQuery(listingsQuery, listingsFacets)
		if err != nil {
			return err
		}

		var source catalog.Source
		if listingsBuiltin {
			builtin, err := catalog.Builtin()
			if err != nil {
				return err
			}
			source = builtin
		} else {
			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()
			repo := db.NewListingRepository(database)
			if _, err := seedListings(ctx, repo); err != nil {
				return fmt.Errorf("failed to seed listings: %w", err)
			}
			source = repo
		}

		items, err := source.List(ctx, kind)
		if err != nil {
			return err
		}
		matched := filter.Apply(items, query)

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, matched)
		}
		if len(matched) == 0 {
			fmt.Printf("No %s match.\n", kind)
			return nil
		}

		facets := catalog.Facets(kind)
		headers := append([]string{"ID", "TITLE"}, upper(facets)...)
		rows := make([][]string, 0, len(matched))
		for _, item := range matched {
			row := []string{item.ID, truncate(item.Title, 40)}
			for _, name := range facets {
				row = append(row, item.FacetValue(name))
			}
			rows = append(rows, row)
		}
		if err := writeTable(os.Stdout, headers, rows); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d %s\n", len(matched), len(items), kind)
		return nil
	},
}

// parseFacetQuery turns --facet name=value flags into a filter query.
func parseFacetQuery(text string, facets []string) (filter.Query, error) {
	q := filter.Query{Text: text, Facets: make(map[string]string, len(facets))}
	for _, raw := range facets {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return filter.Query{}, fmt.Errorf("invalid facet %q: expected name=value", raw)
		}
		q.Facets[name] = strings.TrimSpace(value)
	}
	return q, nil
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
