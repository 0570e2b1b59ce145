package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tracelens-io/tracelens/internal/api/middleware"
	"github.com/tracelens-io/tracelens/internal/authz"
	"github.com/tracelens-io/tracelens/internal/pagination"
	"github.com/tracelens-io/tracelens/internal/profiling"
	"github.com/tracelens-io/tracelens/internal/storage"
)

// countStatusNotComputed marks list responses whose total is intentionally
// absent. Exact counts are full scans on large workspaces; clients navigate
// by cursor instead.
const countStatusNotComputed = "not_computed"

// handleListCustomers handles GET /api/v1/customers.
//
// Query parameters:
//   - workspace_id: required workspace scope
//   - per_page: page size, clamped to configured bounds
//   - cursor: opaque pagination cursor; malformed cursors restart at page one
//   - status / exclude_status: comma-separated status filters
//   - employee_id: filter by assigned employee
//   - has_phone: "true" or "false" phone presence filter
//   - _profile: "true" enables per-request instrumentation
//
// Results are ordered by (created_at DESC, id DESC). The response never
// carries a total count.
func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	// Instrumentation is opt-in per request. The timer starts here, so the
	// middleware layer reads as zero; the observer rides the context into
	// the storage layer, which records every statement it executes.
	var timer *profiling.LayerTimer

	if query.Get("_profile") == "true" {
		timer = profiling.NewLayerTimer(middleware.GetRequestID(ctx))
		timer.Start()
		ctx = profiling.WithObserver(ctx, timer.Observer())
		timer.EndMiddleware()
	}

	workspaceID := query.Get("workspace_id")
	if workspaceID == "" {
		WriteErrorResponse(w, r, s.logger, BadRequest("Missing required parameter 'workspace_id'"))

		return
	}

	perm := s.resolver.NewContext(authz.PrincipalFromContext(ctx))

	allowed, err := perm.CanAccessWorkspace(ctx, workspaceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resolve workspace access",
			"request_id", middleware.GetRequestID(ctx),
			"workspace_id", workspaceID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to resolve workspace access"))

		return
	}

	if !allowed {
		WriteErrorResponse(w, r, s.logger, Forbidden("You do not have access to this workspace"))

		return
	}

	timer.EndPermission()

	filter := &storage.CustomerFilter{
		WorkspaceID:     workspaceID,
		Statuses:        storage.ParseStatusList(query.Get("status")),
		ExcludeStatuses: storage.ParseStatusList(query.Get("exclude_status")),
		EmployeeID:      query.Get("employee_id"),
	}

	if hasPhone := query.Get("has_phone"); hasPhone != "" {
		v := hasPhone == "true"
		filter.HasPhone = &v
	}

	pageSize := s.pageConfig.ClampPageSize(query.Get("per_page"))

	var cursor *pagination.Cursor
	if decoded, ok := pagination.DecodeCursor(query.Get("cursor")); ok {
		cursor = &decoded
	}

	rows, err := s.customers.List(ctx, filter, pageSize, cursor)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query customers",
			"request_id", middleware.GetRequestID(ctx),
			"workspace_id", workspaceID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to query customers"))

		return
	}

	timer.EndQueryset()

	page := pagination.BuildPage(rows, pageSize, cursor, func(c storage.Customer) (time.Time, string) {
		return c.CreatedAt, c.ID
	})

	response := CustomerListResponse{
		Results:     page.Items,
		CountStatus: countStatusNotComputed,
	}

	if response.Results == nil {
		response.Results = []storage.Customer{}
	}

	if page.Next != "" {
		response.Next = &page.Next
	}

	if page.Prev != "" {
		response.Previous = &page.Prev
	}

	if timer == nil {
		s.writeJSON(w, r, http.StatusOK, response)

		return
	}

	// Serialize once to charge the cost to the serializer layer, then attach
	// the finished report and respond.
	if _, err := json.Marshal(response); err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to serialize response"))

		return
	}

	timer.EndSerializer()
	timer.Stop()

	report := timer.Report(s.tuning)

	if s.reports != nil {
		s.reports.Save(ctx, report)
	}

	w.Header().Set("X-Query-Count", strconv.Itoa(report.QueryCount))
	w.Header().Set("X-Total-Time-Ms", strconv.FormatFloat(report.TotalTimeMs, 'f', 2, 64))

	response.Profiling = &report

	s.writeJSON(w, r, http.StatusOK, response)
}
