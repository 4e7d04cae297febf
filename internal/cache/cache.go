// Package cache implements the local record store on Redis: named JSON
// blobs holding the full workout list, the settings object and the
// cached session.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/go-redis/redis/v8"
)

// ErrMiss is returned by GetJSON when the key has never been written.
var ErrMiss = errors.New("cache: key not found")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, value any) error
	SetJSON(ctx context.Context, key string, value any) error
}

type RedisCache struct {
	conn *redis.Client
}

func NewRedisCache(ctx context.Context, addr string) (Cache, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{conn: client}, nil
}

// Set stores a value in the cache.
func (rc *RedisCache) Set(ctx context.Context, key string, value any) error {
	return rc.conn.Set(ctx, key, value, 0).Err()
}

// Get retrieves a value from the cache. A missing key is not an error and
// returns the empty string.
func (rc *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := rc.conn.Get(ctx, key).Result()
	if err == nil || errors.Is(err, redis.Nil) {
		return value, nil
	}

	return "", err
}

// Remove deletes a key. Removing an absent key is not an error.
func (rc *RedisCache) Remove(ctx context.Context, key string) error {
	return rc.conn.Del(ctx, key).Err()
}

// GetJSON retrieves a JSON blob and unmarshals it into the given value.
// Returns ErrMiss when the key is absent so callers can fall back to a
// zero value without treating it as corruption.
func (rc *RedisCache) GetJSON(ctx context.Context, key string, value any) error {
	s, err := rc.Get(ctx, key)
	if err != nil {
		return err
	}
	if s == "" {
		return ErrMiss
	}

	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return fmt.Errorf("unmarshaling cached JSON for %q: %w", key, err)
	}
	return nil
}

// SetJSON stores a value as a JSON blob.
func (rc *RedisCache) SetJSON(ctx context.Context, key string, value any) error {
	t, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling JSON for cache key %q: %w", key, err)
	}
	return rc.Set(ctx, key, string(t))
}
