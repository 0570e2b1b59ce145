package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tracelens-io/tracelens/internal/api/middleware"
)

const (
	healthCheckTimeout     = 2 * time.Second
	contentTypeJSON        = "application/json"
	contentTypeProblemJSON = "application/problem+json"

	serviceName    = "tracelens"
	serviceVersion = "v1.0.0"

	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusUp       = "up"
	statusDown     = "down"
)

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health endpoints (K8s probes and monitoring)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	// Read API
	mux.HandleFunc("GET /api/v1/customers", s.handleListCustomers)
	mux.HandleFunc("GET /api/v1/profile/{request_id}", s.handleGetProfile)

	// Catch-all for 404 responses
	mux.HandleFunc("/", s.handleNotFound)
}

// handlePing responds to liveness probes.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleReady responds to readiness probes. Returns 503 when the database is
// unreachable so traffic is routed away until it recovers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.customers.HealthCheck(ctx); err != nil {
		s.logger.Error("Storage health check failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))

		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleHealth reports dependency health. A down dependency degrades the
// status but still answers 200: the service can partially serve (cache
// outages fall back to direct queries), and a 5xx here would make
// orchestrators restart a pod that is working.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := HealthStatus{
		Status:      statusHealthy,
		ServiceName: serviceName,
		Version:     serviceVersion,
		Storage:     statusUp,
		Cache:       statusUp,
	}

	if !s.startTime.IsZero() {
		health.Uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	if err := s.customers.HealthCheck(ctx); err != nil {
		health.Storage = statusDown
		health.Status = statusDegraded
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.Ping(ctx); err != nil {
			health.Cache = statusDown
			health.Status = statusDegraded
		}
	}

	if s.metadata != nil && health.Storage == statusUp {
		health.QueueLength = s.metadata.EstimatedCustomerCount(ctx)
	}

	s.writeJSON(w, r, http.StatusOK, health)
}

// handleNotFound returns RFC 7807 problem responses for unknown paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource does not exist"))
}

// writeJSON writes a JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
