package main

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func sqlFixture(names ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, name := range names {
		fsys[name] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	}

	return fsys
}

func TestSourceFilesOrderingAndFiltering(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := sqlFixture(
		"010_later.up.sql", "010_later.down.sql",
		"002_second.up.sql", "002_second.down.sql",
		"001_first.up.sql", "001_first.down.sql",
	)

	// None of these may show up in the apply order.
	fsys["README.md"] = &fstest.MapFile{Data: []byte("docs")}
	fsys["script.sql"] = &fstest.MapFile{Data: []byte("-- no version prefix")}
	fsys["001_first.UP.sql"] = &fstest.MapFile{Data: []byte("-- wrong direction case")}
	fsys["01_short.up.sql"] = &fstest.MapFile{Data: []byte("-- two-digit version")}

	files, err := NewSource(fsys).Files()
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}

	want := []string{
		"001_first.down.sql",
		"001_first.up.sql",
		"002_second.down.sql",
		"002_second.up.sql",
		"010_later.down.sql",
		"010_later.up.sql",
	}

	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files() = %v, want %v", files, want)
	}
}

func TestSourceValidate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name: "valid contiguous paired set",
			fsys: sqlFixture(
				"001_a.up.sql", "001_a.down.sql",
				"002_b.up.sql", "002_b.down.sql",
			),
		},
		{
			name:    "empty filesystem",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files embedded",
		},
		{
			name:    "missing down migration",
			fsys:    sqlFixture("001_a.up.sql", "001_a.down.sql", "002_b.up.sql"),
			wantErr: "no down migration",
		},
		{
			name:    "missing up migration",
			fsys:    sqlFixture("001_a.up.sql", "001_a.down.sql", "002_b.down.sql"),
			wantErr: "no up migration",
		},
		{
			name: "gap in versions",
			fsys: sqlFixture(
				"001_a.up.sql", "001_a.down.sql",
				"003_c.up.sql", "003_c.down.sql",
			),
			wantErr: "missing 002",
		},
		{
			name:    "versions must start at 001",
			fsys:    sqlFixture("002_b.up.sql", "002_b.down.sql"),
			wantErr: "missing 001",
		},
		{
			name: "empty migration file",
			fsys: fstest.MapFS{
				"001_a.up.sql":   &fstest.MapFile{Data: []byte("SELECT 1;")},
				"001_a.down.sql": &fstest.MapFile{Data: []byte("")},
			},
			wantErr: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSource(tt.fsys).Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}

				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}

			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSourceMaxVersion(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := sqlFixture(
		"001_a.up.sql", "001_a.down.sql",
		"007_g.up.sql", "007_g.down.sql",
	)

	if got := NewSource(fsys).MaxVersion(); got != 7 {
		t.Errorf("MaxVersion() = %d, want 7", got)
	}

	if got := NewSource(fstest.MapFS{}).MaxVersion(); got != 0 {
		t.Errorf("MaxVersion() on empty source = %d, want 0", got)
	}
}

func TestEmbeddedSchema(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	source := NewSource(nil)

	files, err := source.Files()
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}

	want := []string{
		"001_create_workspaces.down.sql",
		"001_create_workspaces.up.sql",
		"002_create_employees.down.sql",
		"002_create_employees.up.sql",
		"003_create_customers.down.sql",
		"003_create_customers.up.sql",
		"004_create_calls.down.sql",
		"004_create_calls.up.sql",
		"005_create_api_keys.down.sql",
		"005_create_api_keys.up.sql",
		"006_add_performance_indexes.down.sql",
		"006_add_performance_indexes.up.sql",
	}

	if !reflect.DeepEqual(files, want) {
		t.Errorf("embedded files = %v, want %v", files, want)
	}

	if err := source.Validate(); err != nil {
		t.Errorf("embedded schema failed validation: %v", err)
	}

	if got := source.MaxVersion(); got != 6 {
		t.Errorf("embedded MaxVersion() = %d, want 6", got)
	}

	// The paginator depends on this index; losing it from the schema would
	// silently turn every list query into a sequential scan.
	content, err := source.Content("006_add_performance_indexes.up.sql")
	if err != nil {
		t.Fatalf("Content() error: %v", err)
	}

	if !strings.Contains(string(content), "idx_customers_workspace_created_id") {
		t.Error("performance index migration missing the keyset pagination index")
	}
}

func TestSourceContentMissingFile(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, err := NewSource(sqlFixture("001_a.up.sql", "001_a.down.sql")).Content("999_missing.up.sql")
	if err == nil {
		t.Error("Content() expected error for missing file, got nil")
	}
}
