package database

import (
	"path/filepath"
	"testing"
)

// NewTestDB opens a migrated database in a temporary directory.
// It is closed when the test ends.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "huntarr.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
