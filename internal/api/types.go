package api

import (
	"github.com/tracelens-io/tracelens/internal/profiling"
	"github.com/tracelens-io/tracelens/internal/storage"
)

type (
	// CustomerListResponse is the paginated customer list payload.
	//
	// Count is always null: computing an exact count on large workspaces is
	// a full scan, so the endpoint reports count_status "not_computed"
	// instead and clients navigate by cursor alone.
	CustomerListResponse struct {
		Results     []storage.Customer `json:"results"`
		Next        *string            `json:"next"`
		Previous    *string            `json:"previous"`
		Count       *int64             `json:"count"`
		CountStatus string             `json:"count_status"`
		Profiling   *profiling.Report  `json:"_profiling,omitempty"`
	}

	// HealthStatus is the health check response.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"service_name"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
		Storage     string `json:"storage"`
		Cache       string `json:"cache"`
		QueueLength int64  `json:"queue_length"`
	}
)
