package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	migrations, err := LoadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if applied != len(migrations) {
		t.Fatalf("expected %d migrations applied, got %d", len(migrations), applied)
	}

	applied, err = database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on second run, got %d", applied)
	}

	version, err := database.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != migrations[len(migrations)-1].Version {
		t.Fatalf("expected version %d, got %d", migrations[len(migrations)-1].Version, version)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
