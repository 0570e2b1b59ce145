package profiling

import (
	"context"
	"log/slog"
	"time"

	"github.com/tracelens-io/tracelens/internal/cache"
)

// reportKeyPrefix namespaces report entries in the shared cache. Independent
// of the authorization cache keyspace.
const reportKeyPrefix = "profile"

// ReportStore persists profiling reports in the shared cache, keyed by
// request ID, so clients can retrieve a breakdown asynchronously after the
// request completes.
//
// Reports are write-once, read-many: each request ID is written exactly once
// and entries expire on their TTL. A store failure is logged and swallowed -
// instrumentation must never fail the underlying request.
type ReportStore struct {
	reports *cache.Typed[Report]
	ttl     time.Duration
	logger  *slog.Logger
}

// NewReportStore creates a report store over the shared cache with the given
// retention TTL.
func NewReportStore(store cache.Store, ttl time.Duration, logger *slog.Logger) *ReportStore {
	return &ReportStore{
		reports: cache.NewTyped[Report](store, reportKeyPrefix),
		ttl:     ttl,
		logger:  logger,
	}
}

// Save stores the report under its request ID. Failures are logged, not
// returned: the caller has already served the response body.
func (s *ReportStore) Save(ctx context.Context, report Report) {
	if err := s.reports.Set(ctx, report.RequestID, &report, s.ttl); err != nil {
		s.logger.Warn("Failed to cache profiling report",
			slog.String("request_id", report.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

// Get retrieves a previously saved report. Returns (nil, nil) when the report
// is unknown or expired.
func (s *ReportStore) Get(ctx context.Context, requestID string) (*Report, error) {
	return s.reports.Get(ctx, requestID)
}
