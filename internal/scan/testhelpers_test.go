package scan

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	internaldb "github.com/bfinder/bfinder/internal/db"
)

// mustWriteFile creates a regular file of exactly size bytes, creating
// parent directories as needed.
func mustWriteFile(tb testing.TB, path string, size int) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}

// mustOpenDB opens a temp-file SQLite database with the full schema applied.
func mustOpenDB(tb testing.TB) *sql.DB {
	tb.Helper()
	dbPath := filepath.Join(tb.TempDir(), "test.db")
	db, err := internaldb.Open(dbPath)
	if err != nil {
		tb.Fatalf("open test DB: %v", err)
	}
	if err := internaldb.RunMigrations(db); err != nil {
		db.Close()
		tb.Fatalf("run migrations: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	return db
}
