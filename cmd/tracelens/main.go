// Package main provides the TraceLens customer read API service.
//
// TraceLens serves workspace-scoped customer listings with keyset pagination
// and opt-in per-request performance profiling.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tracelens-io/tracelens/internal/api"
	"github.com/tracelens-io/tracelens/internal/api/middleware"
	"github.com/tracelens-io/tracelens/internal/authz"
	"github.com/tracelens-io/tracelens/internal/cache"
	"github.com/tracelens-io/tracelens/internal/config"
	"github.com/tracelens-io/tracelens/internal/pagination"
	"github.com/tracelens-io/tracelens/internal/profiling"
	"github.com/tracelens-io/tracelens/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "tracelens"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting TraceLens service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Load rate limiter configuration
	middlewareConfig := middleware.LoadConfig()

	// Create rate limiter instance (graceful shutdown handled by server.shutdown())
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("user_rps", middlewareConfig.UserRPS),
		slog.Int("unauth_rps", middlewareConfig.UnAuthRPS),
	)

	storageConfig := storage.LoadConfig()

	conn, err := storage.Connect(context.Background(), storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = conn.Close() // Ensure connection closes on normal shutdown
	}()

	logger.Info("Database connection established",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
		slog.Duration("database_conn_max_lifetime", storageConfig.ConnMaxLifetime),
		slog.Duration("database_conn_max_idle_time", storageConfig.ConnMaxIdleTime),
	)

	cacheStore := cache.NewStoreFromEnv(context.Background(), logger)

	var principals middleware.PrincipalResolver

	authEnabled := config.GetEnvBool("TRACELENS_AUTH_ENABLED", false)
	if authEnabled {
		principals = storage.NewPrincipalStore(conn, logger)

		logger.Info("API key authentication enabled")
	} else {
		logger.Warn("API key authentication disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set TRACELENS_AUTH_ENABLED=true to enable API key authentication"),
		)
	}

	directory := storage.NewDirectoryStore(conn, logger)
	resolver := authz.NewResolver(directory, cacheStore, logger)

	tuning := profiling.LoadTuning(profiling.ResolveTuningPath())
	reports := profiling.NewReportStore(cacheStore, tuning.ReportTTL, logger)

	server := api.NewServer(serverConfig, &api.Dependencies{
		Customers:   storage.NewCustomerStore(conn, logger),
		Resolver:    resolver,
		Principals:  principals,
		RateLimiter: rateLimiter,
		Cache:       cacheStore,
		Metadata:    storage.NewMetadata(conn, cacheStore, logger),
		Reports:     reports,
		Tuning:      tuning,
		Pagination:  pagination.LoadConfig(),
	})

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("TraceLens service stopped")
}
