package api

import (
	"context"

	"github.com/tracelens-io/tracelens/internal/pagination"
	"github.com/tracelens-io/tracelens/internal/profiling"
	"github.com/tracelens-io/tracelens/internal/storage"
)

type (
	// CustomerReader is the read interface the customer endpoints need.
	// Implemented by storage.CustomerStore.
	CustomerReader interface {
		List(
			ctx context.Context,
			filter *storage.CustomerFilter,
			pageSize int,
			cursor *pagination.Cursor,
		) ([]storage.Customer, error)
		HealthCheck(ctx context.Context) error
	}

	// CountEstimator serves the cheap row estimate used by health checks.
	// Implemented by storage.Metadata.
	CountEstimator interface {
		EstimatedCustomerCount(ctx context.Context) int64
	}

	// ProfileReportStore persists and retrieves profiling reports.
	// Implemented by profiling.ReportStore.
	ProfileReportStore interface {
		Save(ctx context.Context, report profiling.Report)
		Get(ctx context.Context, requestID string) (*profiling.Report, error)
	}
)
