package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Runner applies the embedded schema to a PostgreSQL database through
// golang-migrate. The source is validated once at construction; embedded
// files cannot change while the process runs.
type Runner struct {
	config  *Config
	source  *Source
	db      *sql.DB
	migrate *migrate.Migrate
}

// NewRunner validates the embedded migrations, connects to the database
// named in config, and returns a runner ready to execute commands.
func NewRunner(config *Config) (*Runner, error) {
	return newRunner(config, NewSource(nil))
}

func newRunner(config *Config, source *Source) (*Runner, error) {
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("migration validation failed: %w", err)
	}

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: config.MigrationTable,
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	src, err := iofs.New(source.FS(), ".")
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{}

	return &Runner{config: config, source: source, db: db, migrate: m}, nil
}

// Up applies all pending migrations.
func (r *Runner) Up() error {
	err := r.migrate.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No new migrations to apply")
	} else {
		log.Println("All migrations applied")
	}

	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down() error {
	err := r.migrate.Steps(-1)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No migrations to roll back")
	} else {
		log.Println("Rolled back one migration")
	}

	return nil
}

// Status reports the database schema version against the versions this
// binary embeds.
func (r *Runner) Status() error {
	embedded := r.source.MaxVersion()

	version, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Printf("No migrations applied; this migrator embeds versions up to %03d", embedded)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	state := "clean"
	if dirty {
		state = "dirty, needs manual intervention"
	}

	log.Printf("Database schema at version %03d (%s); migrator embeds up to %03d", version, state, embedded)

	switch {
	case int(version) < embedded:
		log.Printf("%d migration(s) pending; run up to apply them", embedded-int(version))
	case int(version) > embedded:
		log.Printf("Database schema is newer than this migrator; update the tool")
	}

	return nil
}

// Version prints the current schema version.
func (r *Runner) Version() error {
	version, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("No migrations applied")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	note := ""
	if dirty {
		note = " (dirty)"
	}

	log.Printf("Current version: %03d%s", version, note)

	return nil
}

// Drop removes every table in the database. Destructive; the CLI asks for
// confirmation before calling this.
func (r *Runner) Drop() error {
	log.Println("Dropping all tables...")

	if err := r.migrate.Drop(); err != nil {
		return fmt.Errorf("drop failed: %w", err)
	}

	log.Println("All tables dropped")

	return nil
}

// Close releases the migrate instance and the database connection.
func (r *Runner) Close() error {
	var errs []error

	if r.migrate != nil {
		srcErr, dbErr := r.migrate.Close()
		errs = append(errs, srcErr, dbErr)
	}

	if r.db != nil {
		errs = append(errs, r.db.Close())
	}

	return errors.Join(errs...)
}

// migrateLogger routes golang-migrate output through the standard logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[MIGRATE] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return true
}
