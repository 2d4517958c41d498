package database

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"
)

// withMigrations points the migrator at a test filesystem and restores
// the package globals afterwards.
func withMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS = fsys
	MigrationsDir = dir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
}

func TestOpen(t *testing.T) {
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "data", "bridge.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	var journalMode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}
}

func TestMigrate_NoEmbeddedMigrations(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bridge.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	// Without a registered migrations FS the migrator has nothing to do.
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrate_RootDirFS(t *testing.T) {
	// The migrations package registers its files at the root of the
	// embedded FS with MigrationsDir ".". Reads must resolve to plain
	// filenames, not "./"-prefixed paths io/fs rejects.
	withMigrations(t, fstest.MapFS{
		"001_test_table.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
		},
	}, ".")

	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bridge.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var name string
	err = db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name='test_table'").Scan(&name)
	if err != nil {
		t.Fatalf("migration table not created: %v", err)
	}

	// Re-running must be a no-op, not a duplicate-table error.
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrate_MissingDir(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"001_test_table.sql": &fstest.MapFile{Data: []byte("CREATE TABLE t (id INTEGER)")},
	}, "nonexistent")

	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bridge.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	// A registered FS with a bad directory is a configuration error and
	// must surface, not be treated as "no migrations".
	if err := db.Migrate(context.Background()); err == nil {
		t.Error("Migrate() should fail for a missing migrations directory")
	}
}

func TestClose_Idempotent(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bridge.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
