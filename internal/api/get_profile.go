package api

import (
	"net/http"

	"github.com/tracelens-io/tracelens/internal/api/middleware"
)

// handleGetProfile handles GET /api/v1/profile/{request_id}.
// Returns the stored profiling report for an instrumented request, or 404
// when the request was never profiled or the report has expired.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("request_id")
	if requestID == "" {
		WriteErrorResponse(w, r, s.logger, BadRequest("Missing request_id path parameter"))

		return
	}

	report, err := s.reports.Get(r.Context(), requestID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load profiling report",
			"request_id", middleware.GetRequestID(r.Context()),
			"profile_request_id", requestID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load profiling report"))

		return
	}

	if report == nil {
		WriteErrorResponse(w, r, s.logger, NotFound("No profiling report found for this request ID"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, report)
}
