package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Typed wraps a Store with JSON marshalling for a single value type under a
// common key prefix. This is the cache-aside building block: compute key from
// inputs, check cache, compute on miss, store with TTL.
type Typed[T any] struct {
	store  Store
	prefix string
}

// NewTyped creates a typed cache view over store. Keys are namespaced as
// "<prefix>:<field>".
func NewTyped[T any](store Store, prefix string) *Typed[T] {
	return &Typed[T]{store: store, prefix: prefix}
}

// Key returns the namespaced cache key for field.
func (c *Typed[T]) Key(field string) string {
	if c.prefix == "" {
		return field
	}

	return fmt.Sprintf("%s:%s", c.prefix, field)
}

// Get retrieves and unmarshals the value stored for field.
// Returns (nil, nil) on a cache miss.
func (c *Typed[T]) Get(ctx context.Context, field string) (*T, error) {
	data, found, err := c.store.Get(ctx, c.Key(field))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil // Cache miss
	}

	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &row, nil
}

// Set marshals and stores value for field with the given TTL.
func (c *Typed[T]) Set(ctx context.Context, field string, value *T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	return c.store.Set(ctx, c.Key(field), data, ttl)
}

// Delete removes the entry for field.
func (c *Typed[T]) Delete(ctx context.Context, field string) error {
	return c.store.Delete(ctx, c.Key(field))
}
