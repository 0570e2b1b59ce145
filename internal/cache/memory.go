package cache

import (
	"context"
	"sync"
	"time"
)

const (
	defaultJanitorInterval = 1 * time.Minute
)

// MemoryStore provides a thread-safe in-memory Store implementation.
//
// Suitable for single-node deployments and tests. A background janitor
// removes expired entries periodically so the map does not grow unbounded;
// reads also check expiry so a stale entry is never returned between janitor
// runs.
type MemoryStore struct {
	// entries maps cache keys to values with their expiry deadline
	entries map[string]memoryEntry
	// mutex protects concurrent access to entries
	mutex sync.RWMutex

	janitorTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero value means no expiry
}

// NewMemoryStore creates a new in-memory cache store with a background
// janitor sweeping expired entries every minute.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:       make(map[string]memoryEntry),
		janitorTicker: time.NewTicker(defaultJanitorInterval),
		done:          make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Get retrieves the value stored at key. Expired entries are treated as
// misses.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	entry, exists := s.entries[key]
	s.mutex.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	// Return a copy to prevent external modification
	value := make([]byte, len(entry.value))
	copy(value, entry.value)

	return value, true, nil
}

// Set stores value at key, replacing any existing entry wholesale.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)

	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mutex.Lock()
	s.entries[key] = entry
	s.mutex.Unlock()

	return nil
}

// Delete removes the entry at key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	delete(s.entries, key)
	s.mutex.Unlock()

	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close stops the background janitor goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.janitorTicker.Stop()
		close(s.done)
	})

	return nil
}

// janitor sweeps expired entries until Close is called.
func (s *MemoryStore) janitor() {
	for {
		select {
		case <-s.done:
			return
		case <-s.janitorTicker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
