package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "peoplepulse:storage"

// Redis stores values as plain redis keys with native expiry
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps a redis client
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func redisKey(clientID, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisPrefix, clientID, key)
}

func (s *Redis) Get(ctx context.Context, clientID, key string) (string, error) {
	value, err := s.rdb.Get(ctx, redisKey(clientID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Redis) Set(ctx context.Context, clientID, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, redisKey(clientID, key), value, ttl).Err()
}

func (s *Redis) Delete(ctx context.Context, clientID, key string) error {
	return s.rdb.Del(ctx, redisKey(clientID, key)).Err()
}
