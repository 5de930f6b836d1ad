package cli

import (
	"context"
	"fmt"

	"github.com/vibealong/vibealong/internal/config"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/kvstore"
)

// openDraftStore returns the configured key/value backend and its closer.
// The sqlite backend needs an open database.
func openDraftStore(ctx context.Context, cfg config.StoreConfig, database *db.DB) (kvstore.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kvstore.NewMemory(), func() {}, nil
	case config.BackendRedis:
		store, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "vibealong:",
		})
		if err != nil {
			return nil, nil, &PreflightError{
				Message:  err.Error(),
				Hint:     "Start redis or set store.backend to sqlite",
				NextStep: "VIBEALONG_STORE_BACKEND=sqlite vibealong signup",
			}
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendSQLite, "":
		if database == nil {
			return nil, nil, fmt.Errorf("sqlite store requires a database")
		}
		return db.NewKVRepository(database), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
