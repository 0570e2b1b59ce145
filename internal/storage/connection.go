// Package storage provides PostgreSQL-backed persistence for the TraceLens read API.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tracelens-io/tracelens/internal/profiling"
)

const connectTimeout = 10 * time.Second

// ErrNilConfig is returned when a Connection is created without configuration.
var ErrNilConfig = errors.New("storage config cannot be nil")

// Connection wraps a pooled *sql.DB and records every statement it executes
// into the request's query observer. Handlers that run with profiling enabled
// see each query and its wall-clock duration; all other requests pay a single
// nil check per statement.
type Connection struct {
	DB *sql.DB
}

// Connect opens a PostgreSQL connection pool and verifies connectivity.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{DB: db}, nil
}

// QueryContext executes a query that returns rows, recording it into the
// request's observer when one is active.
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.DB.QueryContext(ctx, query, args...)
	profiling.ObserverFromContext(ctx).Record(query, time.Since(start))

	return rows, err
}

// QueryRowContext executes a query expected to return at most one row.
// The statement is recorded when the query is issued, not when the row is
// scanned, so the observed duration excludes caller-side scan time.
func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := c.DB.QueryRowContext(ctx, query, args...)
	profiling.ObserverFromContext(ctx).Record(query, time.Since(start))

	return row
}

// ExecContext executes a statement without returning rows.
func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := c.DB.ExecContext(ctx, query, args...)
	profiling.ObserverFromContext(ctx).Record(query, time.Since(start))

	return result, err
}

// BeginTx starts a transaction with the given options.
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.DB.BeginTx(ctx, opts)
}

// HealthCheck verifies database connectivity.
func (c *Connection) HealthCheck(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Connection) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}

	return nil
}
