package storage

import (
	"context"
	"errors"
	"time"

	"peoplepulse/internal/database"
)

// SQLite stores values in the client_storage table
type SQLite struct {
	repo *database.StorageRepo
}

// NewSQLite wraps a storage repository
func NewSQLite(repo *database.StorageRepo) *SQLite {
	return &SQLite{repo: repo}
}

func (s *SQLite) Get(ctx context.Context, clientID, key string) (string, error) {
	value, err := s.repo.Get(ctx, clientID, key)
	if errors.Is(err, database.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *SQLite) Set(ctx context.Context, clientID, key, value string, ttl time.Duration) error {
	return s.repo.Set(ctx, clientID, key, value, ttl)
}

func (s *SQLite) Delete(ctx context.Context, clientID, key string) error {
	return s.repo.Delete(ctx, clientID, key)
}
