package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"testdata/20261001_120000_fences.up.sql":       {Data: []byte(`CREATE TABLE test_fences (id TEXT PRIMARY KEY);`)},
	"testdata/20261001_120000_fences.down.sql":     {Data: []byte(`DROP TABLE test_fences;`)},
	"testdata/20261002_120000_history.up.sql":      {Data: []byte(`CREATE TABLE test_history (id TEXT PRIMARY KEY);`)},
	"testdata/20261003_120000_orphan.down.sql":     {Data: []byte(`DROP TABLE nothing;`)},
	"testdata/README.md":                           {Data: []byte("ignored")},
	"testdata/20261004_fences.up.sql":              {Data: []byte("ignored")},
	"testdata/20261005_120000_fences.sideways.sql": {Data: []byte("ignored")},
}

// useMigrations swaps the migration source for the duration of the test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
	MigrationsFS, MigrationsDir = fsys, dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query error = %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations, "testdata")
	db := openTestDB(t)
	ctx := context.Background()

	before, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(before.Applied) != 0 || len(before.Pending) != 2 {
		t.Fatalf("status before = %+v, want 0 applied, 2 pending", before)
	}
	if before.Pending[0].Name != "fences" || before.Pending[1].Version != "20261002_120000" {
		t.Errorf("pending = %+v", before.Pending)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_fences") || !tableExists(t, db, "test_history") {
		t.Fatal("migration tables not created")
	}

	after, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(after.Applied) != 2 || len(after.Pending) != 0 {
		t.Errorf("status after = %+v, want 2 applied, 0 pending", after)
	}
	if after.Applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestRollback(t *testing.T) {
	useMigrations(t, testMigrations, "testdata")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The latest migration has no down file.
	if _, err := db.Rollback(ctx); err == nil {
		t.Fatal("Rollback() without down SQL error = nil")
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = '20261002_120000'"); err != nil {
		t.Fatalf("DELETE error = %v", err)
	}

	m, err := db.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if m == nil || m.Version != "20261001_120000" {
		t.Errorf("Rollback() = %+v, want 20261001_120000", m)
	}
	if tableExists(t, db, "test_fences") {
		t.Error("test_fences not dropped")
	}

	m, err = db.Rollback(ctx)
	if err != nil || m != nil {
		t.Errorf("Rollback() on empty history = %+v, %v, want nil, nil", m, err)
	}
}

func TestMigrateFailureKeepsEarlierMigrations(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261001_120000_good.up.sql": {Data: []byte(`CREATE TABLE good (id INTEGER);`)},
		"20261002_120000_bad.up.sql":  {Data: []byte(`CREATE TABLE bad (;`)},
	}, ".")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() error = nil, want failure")
	}

	status, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(status.Applied) != 1 || len(status.Pending) != 1 || status.Pending[0].Name != "bad" {
		t.Errorf("status = %+v, want good applied and bad pending", status)
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}
