// Package storage is the durable per-browser key-value storage that outlives
// in-memory sessions across restarts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"peoplepulse/internal/config"
	"peoplepulse/internal/database"
)

// TokenKey is the fixed key the bearer token is persisted under
const TokenKey = "token"

// ErrNotFound is returned when a client has no value under a key
var ErrNotFound = errors.New("storage: not found")

// Store is durable key-value storage scoped per browser client
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	// Set stores value; a zero ttl never expires
	Set(ctx context.Context, clientID, key, value string, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, clientID, key string) error
}

// Open builds the store selected by cfg. The sqlite driver uses db; the
// redis driver dials cfg.RedisAddr and returns its client for closing.
func Open(ctx context.Context, cfg config.StorageConfig, db *sql.DB) (Store, func() error, error) {
	var (
		store   Store
		closeFn = func() error { return nil }
	)

	switch cfg.Driver {
	case config.DriverSQLite, "":
		store = NewSQLite(database.NewStorageRepo(db))
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = NewRedis(rdb)
		closeFn = rdb.Close
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if cfg.Secret != "" {
		sealed, err := NewSealed(store, []byte(cfg.Secret))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		store = sealed
	}

	return store, closeFn, nil
}
