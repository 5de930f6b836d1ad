package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibealong/vibealong/internal/kvstore"
)

// KVRepository is a kvstore.Store backed by the kv table.
type KVRepository struct {
	db  *DB
	now func() time.Time
}

// NewKVRepository creates a new KVRepository.
func NewKVRepository(db *DB) *KVRepository {
	return &KVRepository{db: db, now: time.Now}
}

var _ kvstore.Store = (*KVRepository)(nil)

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvstore.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	if expiresAt.Valid && !r.now().Before(parseTime(expiresAt.String)) {
		_ = r.Delete(ctx, key)
		return nil, kvstore.ErrKeyNotFound
	}
	return value, nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *string
	if ttl > 0 {
		s := formatTime(r.now().Add(ttl))
		expiresAt = &s
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes expired keys and returns how many were removed.
func (r *KVRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, formatTime(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to purge keys: %w", err)
	}
	return res.RowsAffected()
}
