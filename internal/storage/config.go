package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/tracelens-io/tracelens/internal/config"
)

// ErrDatabaseURLEmpty is returned when no database URL is configured.
var ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

// Config holds the PostgreSQL connection settings. The URL is kept private
// so it cannot end up in a log line by accident; MaskDatabaseURL is the
// loggable form.
type Config struct {
	databaseURL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig reads the connection settings from the environment. Pool limits
// fall back to defaults sized for a single service instance.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("DATABASE_URL", ""),
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", 10*time.Minute),
	}
}

// Validate reports whether the configuration can open a connection.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskDatabaseURL returns the connection URL with the password replaced,
// safe for logging. The last "@" splits userinfo from host, so passwords
// containing "@" mask correctly.
func (c *Config) MaskDatabaseURL() string {
	scheme, rest, found := strings.Cut(c.databaseURL, "://")
	if !found {
		return c.databaseURL
	}

	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return c.databaseURL
	}

	user, password, found := strings.Cut(rest[:at], ":")
	if !found || password == "" {
		return c.databaseURL
	}

	return scheme + "://" + user + ":***" + rest[at:]
}
