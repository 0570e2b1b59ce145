package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var schemaFS embed.FS

// migrationFileRe enforces the NNN_name.up.sql / NNN_name.down.sql naming
// convention. Files that do not match are never applied.
var migrationFileRe = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

var errNoMigrations = errors.New("no migration files embedded")

// Source is the set of SQL migration files the binary carries. The schema is
// embedded at build time, so a deployed migrator needs no files on disk. A
// non-nil filesystem can be injected for tests.
type Source struct {
	fsys fs.FS
}

// NewSource returns a source over the given filesystem, or over the embedded
// schema when fsys is nil.
func NewSource(fsys fs.FS) *Source {
	if fsys == nil {
		fsys = schemaFS
	}

	return &Source{fsys: fsys}
}

// FS exposes the underlying filesystem for the migrate driver.
func (s *Source) FS() fs.FS {
	return s.fsys
}

// Files returns the migration filenames in apply order. Names that do not
// match the naming convention are ignored; lexicographic order equals version
// order because versions are zero-padded to three digits.
func (s *Source) Files() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if migrationFileRe.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// Content returns the SQL text of one migration file.
func (s *Source) Content(name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

// Validate checks the embedded set before anything touches the database:
// every file must be readable and non-empty, every version needs both an up
// and a down file, and versions must run 001..N without gaps.
func (s *Source) Validate() error {
	names, err := s.Files()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		return errNoMigrations
	}

	directions := make(map[int]map[string]bool)

	for _, name := range names {
		version, direction, err := parseMigrationName(name)
		if err != nil {
			return err
		}

		content, err := s.Content(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		if len(content) == 0 {
			return fmt.Errorf("migration %s is empty", name)
		}

		if directions[version] == nil {
			directions[version] = make(map[string]bool)
		}

		directions[version][direction] = true
	}

	versions := make([]int, 0, len(directions))

	for version, dirs := range directions {
		if !dirs["up"] {
			return fmt.Errorf("version %03d has a down migration but no up migration", version)
		}

		if !dirs["down"] {
			return fmt.Errorf("version %03d has an up migration but no down migration", version)
		}

		versions = append(versions, version)
	}

	sort.Ints(versions)

	for i, version := range versions {
		if version != i+1 {
			return fmt.Errorf("migration versions must be contiguous from 001, missing %03d", i+1)
		}
	}

	return nil
}

// MaxVersion returns the highest embedded migration version, 0 when the
// source is empty or unreadable.
func (s *Source) MaxVersion() int {
	names, err := s.Files()
	if err != nil {
		return 0
	}

	highest := 0

	for _, name := range names {
		if version, _, err := parseMigrationName(name); err == nil && version > highest {
			highest = version
		}
	}

	return highest
}

func parseMigrationName(name string) (int, string, error) {
	matches := migrationFileRe.FindStringSubmatch(name)
	if matches == nil {
		return 0, "", fmt.Errorf(
			"invalid migration filename %s, want NNN_name.up.sql or NNN_name.down.sql", name)
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", fmt.Errorf("invalid version in migration filename %s: %w", name, err)
	}

	return version, matches[3], nil
}
