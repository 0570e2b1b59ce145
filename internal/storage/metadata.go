package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/tracelens-io/tracelens/internal/cache"
	"github.com/tracelens-io/tracelens/internal/config"
)

const defaultCountTTL = 60 * time.Second

// Metadata serves cheap, cached table statistics. Counts are never computed
// exactly on a request path: the estimate comes from the planner statistics
// in pg_class, and even that is cached to keep repeated health probes off
// the database.
type Metadata struct {
	conn   *Connection
	counts *cache.Typed[int64]
	ttl    time.Duration
	logger *slog.Logger
}

// NewMetadata creates a metadata reader over the given connection and cache.
// The count TTL is read from TRACELENS_COUNT_TTL (default 60s).
func NewMetadata(conn *Connection, store cache.Store, logger *slog.Logger) *Metadata {
	return &Metadata{
		conn:   conn,
		counts: cache.NewTyped[int64](store, "meta"),
		ttl:    config.GetEnvDuration("TRACELENS_COUNT_TTL", defaultCountTTL),
		logger: logger.With(slog.String("component", "metadata")),
	}
}

// EstimatedCustomerCount returns the planner's row estimate for the customers
// table. Cache failures degrade to a direct estimate query, and estimate
// failures degrade to zero; neither fails the caller.
func (m *Metadata) EstimatedCustomerCount(ctx context.Context) int64 {
	cached, err := m.counts.Get(ctx, "customers")
	if err != nil {
		m.logger.Warn("count cache read failed", slog.String("error", err.Error()))
	} else if cached != nil {
		return *cached
	}

	var estimate int64

	query := `SELECT reltuples::bigint FROM pg_class WHERE relname = 'customers'`

	if err := m.conn.QueryRowContext(ctx, query).Scan(&estimate); err != nil {
		m.logger.Warn("count estimate failed", slog.String("error", err.Error()))

		return 0
	}

	if estimate < 0 {
		// reltuples is -1 for never-analyzed tables.
		estimate = 0
	}

	if err := m.counts.Set(ctx, "customers", &estimate, m.ttl); err != nil {
		m.logger.Warn("count cache write failed", slog.String("error", err.Error()))
	}

	return estimate
}

// InvalidateCustomerCount drops the cached estimate. Called by write paths
// after bulk changes.
func (m *Metadata) InvalidateCustomerCount(ctx context.Context) {
	if err := m.counts.Delete(ctx, "customers"); err != nil {
		m.logger.Warn("count cache invalidation failed", slog.String("error", err.Error()))
	}
}
