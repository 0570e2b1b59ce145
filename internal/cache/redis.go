package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store backed by a Redis server.
//
// Used in multi-node deployments so all instances share one authorization
// cache and profiling reports are retrievable from any node.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using the given configuration and verifies
// connectivity with a ping before returning.
func NewRedisStore(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, ErrRedisAddrEmpty
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// ErrRedisAddrEmpty is returned when the Redis address is an empty string.
var ErrRedisAddrEmpty = errors.New("redis address cannot be empty")

// Get retrieves the value stored at key. redis.Nil is translated to a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}

		return nil, false, fmt.Errorf("redis: failed to get %q: %w", key, err)
	}

	return value, true, nil
}

// Set stores value at key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // redis treats 0 as "no expiry"
	}

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %q: %w", key, err)
	}

	return nil
}

// Delete removes the entry at key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete %q: %w", key, err)
	}

	return nil
}

// Ping reports whether the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis: failed to close connection: %w", err)
	}

	return nil
}
