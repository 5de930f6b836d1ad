package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibealong/vibealong/internal/kvstore"
)

func TestKVRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(openTestDB(t))
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if _, err := repo.Get(ctx, "draft"); !errors.Is(err, kvstore.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := repo.Set(ctx, "draft", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "draft", []byte("v2"), 0); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := repo.Get(ctx, "draft")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected v2, got %q", got)
	}

	if err := repo.Set(ctx, "short", []byte("x"), time.Minute); err != nil {
		t.Fatalf("Set ttl: %v", err)
	}
	now = now.Add(2 * time.Minute)
	purged, err := repo.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged key, got %d", purged)
	}
	if _, err := repo.Get(ctx, "draft"); err != nil {
		t.Fatalf("key without ttl must survive: %v", err)
	}

	if err := repo.Delete(ctx, "draft"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "draft"); !errors.Is(err, kvstore.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestKVRepositoryExpiresOnRead(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(openTestDB(t))
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.Set(ctx, "k", []byte("x"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(time.Second)
	if _, err := repo.Get(ctx, "k"); !errors.Is(err, kvstore.ErrKeyNotFound) {
		t.Fatalf("expected expired key, got %v", err)
	}
}
