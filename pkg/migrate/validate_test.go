package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/multierr"
)

func TestCreateSQLMigrationThenValidate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Seller Ratings!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260314093000_add_seller_ratings.sql" {
		t.Fatalf("unexpected migration name %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("expected generated migration to validate: %v", err)
	}
}

func TestCreateSQLMigrationBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20990101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	path, err := CreateSQLMigration(dir, "ward counts", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20990101000001_ward_counts.sql" {
		t.Fatalf("expected version after newest file, got %q", path)
	}
}

func TestCreateSQLMigrationRequiresName(t *testing.T) {
	if _, err := CreateSQLMigration(t.TempDir(), "   !!! ", time.Now()); err == nil {
		t.Fatal("expected empty sanitized name error")
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"001_bad.sql":                     {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_only_up.sql":      {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260101000100_reversed.sql":     {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		"20260101000200_open_block.sql":   {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
		"20260101000300_fine.sql":         {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"20260101000300_same_version.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"README.md":                       {Data: []byte("notes")},
	}

	err := ValidateFS(fsys)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	errs := multierr.Errors(err)
	if len(errs) != 5 {
		t.Fatalf("expected 5 problems, got %d: %v", len(errs), err)
	}
	for _, want := range []string{"invalid migration filename", "missing", "Down before Up", "StatementBegin", "duplicate migration version"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := ParseVersion("20260301090700"); err != nil || v != 20260301090700 {
		t.Fatalf("unexpected %d %v", v, err)
	}
	for _, bad := range []string{"", "2026", "2026030109070x", "000000000000000"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
