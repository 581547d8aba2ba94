package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns an in-memory database with the schema and the built-in
// checklists, closed when the test ends. No users or pending items exist.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("applying schema to test database: %v", err)
	}
	return database
}
