// Package cache provides the shared TTL cache used for authorization scope
// sets, workspace metadata, and profiling reports.
//
// Entries are idempotently recomputable from source data, so the contract is
// deliberately narrow: last-writer-wins on key collision, approximately
// consistent TTL expiry, no cross-key guarantees.
package cache

import (
	"context"
	"time"
)

// Store defines the shared cache contract consumed by the rest of the service.
//
// Implementations must be safe for concurrent use from many request
// goroutines. A read of a missing or expired key returns found=false with a
// nil error; errors are reserved for backend failures (connection refused,
// timeout) so callers can distinguish "miss" from "cache unavailable" and
// degrade to recomputation.
type Store interface {
	// Get retrieves the value stored at key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value at key with the given TTL. A non-positive TTL stores
	// the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the entry at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping reports whether the cache backend is reachable.
	Ping(ctx context.Context) error
}
