package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracelens-io/tracelens/internal/api/middleware"
	"github.com/tracelens-io/tracelens/internal/authz"
	"github.com/tracelens-io/tracelens/internal/cache"
	"github.com/tracelens-io/tracelens/internal/pagination"
	"github.com/tracelens-io/tracelens/internal/profiling"
)

type (
	// Dependencies carries the runtime collaborators of the server.
	// Principals and RateLimiter may be nil, which disables the
	// corresponding middleware.
	Dependencies struct {
		Customers   CustomerReader
		Resolver    *authz.Resolver
		Principals  middleware.PrincipalResolver
		RateLimiter middleware.RateLimiter
		Cache       cache.Store
		Metadata    CountEstimator
		Reports     ProfileReportStore
		Tuning      *profiling.Tuning
		Pagination  *pagination.Config
	}

	// Server represents the HTTP API server.
	Server struct {
		httpServer  *http.Server
		logger      *slog.Logger
		config      *ServerConfig
		startTime   time.Time
		customers   CustomerReader
		resolver    *authz.Resolver
		rateLimiter middleware.RateLimiter
		cacheStore  cache.Store
		metadata    CountEstimator
		reports     ProfileReportStore
		tuning      *profiling.Tuning
		pageConfig  *pagination.Config
	}
)

// NewServer creates a new HTTP server with structured logging and the
// middleware stack. Configuration (what) is separated from dependencies
// (how); both are injected.
func NewServer(cfg *ServerConfig, deps *Dependencies) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mux := http.NewServeMux()

	server := &Server{
		logger:      logger,
		config:      cfg,
		customers:   deps.Customers,
		resolver:    deps.Resolver,
		rateLimiter: deps.RateLimiter,
		cacheStore:  deps.Cache,
		metadata:    deps.Metadata,
		reports:     deps.Reports,
		tuning:      deps.Tuning,
		pageConfig:  deps.Pagination,
	}

	server.setupRoutes(mux)

	if deps.Principals != nil {
		logger.Info("API key authentication middleware enabled")
	} else {
		logger.Warn("PrincipalResolver not configured - authentication middleware disabled")
	}

	if deps.RateLimiter != nil {
		logger.Info("Rate limiting middleware enabled")
	} else {
		logger.Warn("RateLimiter not configured - rate limiting middleware disabled")
	}

	// Middleware executes in the order listed (top-to-bottom):
	//   1. RequestID - tag every request and response
	//   2. Recovery - catch panics in all downstream middleware
	//   3. Auth - resolve API key to principal (optional)
	//   4. RateLimit - block before expensive operations (optional)
	//   5. RequestLogger - log only legitimate requests
	//   6. CORS - lightweight header manipulation
	handler := middleware.Apply(mux,
		middleware.WithRequestID(),
		middleware.WithRecovery(logger),
		middleware.WithAuth(deps.Principals, logger),
		middleware.WithRateLimit(deps.RateLimiter, logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Handler returns the fully wired HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
// Handles graceful shutdown on SIGINT and SIGTERM.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting TraceLens API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

// shutdown gracefully shuts down the server and its background components.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed", slog.String("error", err.Error()))

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		if limiter, ok := s.rateLimiter.(interface{ Close() }); ok {
			limiter.Close()
			s.logger.Info("Rate limiter closed")
		}
	}

	if s.cacheStore != nil {
		if closer, ok := s.cacheStore.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				s.logger.Error("Failed to close cache store", slog.String("error", err.Error()))
			} else {
				s.logger.Info("Cache store closed")
			}
		}
	}

	s.logger.Info("Server shutdown completed successfully")

	return nil
}
