package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vibealong/vibealong/internal/models"
)

// ListingRepository stores marketplace listings. It satisfies catalog.Source.
type ListingRepository struct {
	db *DB
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Seed upserts listings, keeping their relative order within each kind.
func (r *ListingRepository) Seed(ctx context.Context, listings []models.Listing) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	positions := make(map[models.ListingKind]int)
	for _, l := range listings {
		if err := l.Validate(); err != nil {
			return 0, fmt.Errorf("listing %s: %w", l.ID, err)
		}
		tags, err := json.Marshal(nonNilStrings(l.Tags))
		if err != nil {
			return 0, err
		}
		facets := l.Facets
		if facets == nil {
			facets = map[string]string{}
		}
		facetsJSON, err := json.Marshal(facets)
		if err != nil {
			return 0, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listings (id, kind, title, description, tags_json, facets_json, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				title = excluded.title,
				description = excluded.description,
				tags_json = excluded.tags_json,
				facets_json = excluded.facets_json,
				position = excluded.position
		`, l.ID, string(l.Kind), l.Title, l.Description, string(tags), string(facetsJSON), positions[l.Kind])
		if err != nil {
			return 0, fmt.Errorf("failed to upsert listing %s: %w", l.ID, err)
		}
		positions[l.Kind]++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(listings), nil
}

// List returns listings of kind in seeded order.
func (r *ListingRepository) List(ctx context.Context, kind models.ListingKind) ([]models.Listing, error) {
	if _, err := models.ParseListingKind(string(kind)); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, title, description, tags_json, facets_json
		FROM listings WHERE kind = ? ORDER BY position, id
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Listing, 0)
	for rows.Next() {
		var l models.Listing
		var k, tags, facets string
		if err := rows.Scan(&l.ID, &k, &l.Title, &l.Description, &tags, &facets); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.Kind = models.ListingKind(k)
		if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
			return nil, fmt.Errorf("listing %s tags: %w", l.ID, err)
		}
		if err := json.Unmarshal([]byte(facets), &l.Facets); err != nil {
			return nil, fmt.Errorf("listing %s facets: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Count returns the number of stored listings.
func (r *ListingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
