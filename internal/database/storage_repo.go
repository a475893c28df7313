package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a client has no value under a key
var ErrKeyNotFound = errors.New("storage key not found")

// StorageRepo persists per-browser key-value pairs
type StorageRepo struct {
	db *sql.DB
}

// NewStorageRepo creates a new storage repository
func NewStorageRepo(db *sql.DB) *StorageRepo {
	return &StorageRepo{db: db}
}

// Get retrieves a value; expired rows read as missing
func (r *StorageRepo) Get(ctx context.Context, clientID, key string) (string, error) {
	var value string
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM client_storage WHERE client_id = ? AND key = ?
	`, clientID, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}

	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		// Clean up expired value
		r.Delete(ctx, clientID, key)
		return "", ErrKeyNotFound
	}

	return value, nil
}

// Set upserts a value. A zero ttl never expires.
func (r *StorageRepo) Set(ctx context.Context, clientID, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_storage (client_id, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, clientID, key, value, expiresAt, time.Now())
	return err
}

// Delete removes a value; deleting a missing key is not an error
func (r *StorageRepo) Delete(ctx context.Context, clientID, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM client_storage WHERE client_id = ? AND key = ?", clientID, key)
	return err
}

// DeleteExpired removes all expired values
func (r *StorageRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM client_storage WHERE expires_at IS NOT NULL AND expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
