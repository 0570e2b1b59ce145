package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tracelens-io/tracelens/internal/config"
)

var (
	errDatabaseURLMissing  = errors.New("DATABASE_URL is required")
	errMigrationTableEmpty = errors.New("MIGRATION_TABLE cannot be empty")
)

// Config holds the migrator's settings, read from the environment.
type Config struct {
	DatabaseURL    string
	MigrationTable string
}

// LoadConfig reads and validates the migrator configuration.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errDatabaseURLMissing
	}

	if strings.TrimSpace(c.MigrationTable) == "" {
		return errMigrationTableEmpty
	}

	return nil
}

// String renders the configuration with the database password masked, safe
// for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}",
		maskDatabaseURL(c.DatabaseURL), c.MigrationTable)
}

// maskDatabaseURL hides the password portion of a connection URL. The last
// "@" splits userinfo from host, so passwords containing "@" mask correctly.
func maskDatabaseURL(raw string) string {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return raw
	}

	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return raw
	}

	user, password, found := strings.Cut(rest[:at], ":")
	if !found || password == "" {
		return raw
	}

	return scheme + "://" + user + ":***" + rest[at:]
}
