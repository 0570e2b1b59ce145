package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tracelens-io/tracelens/internal/cache"
)

func TestMetadataCachedCountAndInvalidation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := context.Background()
	store := cache.NewMemoryStore()

	t.Cleanup(func() {
		_ = store.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// No live database behind the connection: every read below must be
	// served from the cache.
	m := NewMetadata(&Connection{}, store, logger)

	seeded := int64(1200)
	if err := m.counts.Set(ctx, "customers", &seeded, time.Minute); err != nil {
		t.Fatalf("failed to seed count cache: %v", err)
	}

	if got := m.EstimatedCustomerCount(ctx); got != 1200 {
		t.Errorf("EstimatedCustomerCount() = %d, want cached 1200", got)
	}

	m.InvalidateCustomerCount(ctx)

	cached, err := m.counts.Get(ctx, "customers")
	if err != nil {
		t.Fatalf("cache read after invalidation: %v", err)
	}

	if cached != nil {
		t.Errorf("cached estimate = %d after invalidation, want a miss", *cached)
	}
}
