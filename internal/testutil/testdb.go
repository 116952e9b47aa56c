package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/workledger/internal/db"
)

// NewTestDB opens a migrated in-memory store, closed on cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDB(t, db.MemoryPath)
}

// NewTestDBFile opens a migrated store in a temp directory and returns its
// path so a test can reopen it.
func NewTestDBFile(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "workledger.db")
	return openTestDB(t, path), path
}

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(path)
	require.NoError(t, err, "opening test store %s", path)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}
