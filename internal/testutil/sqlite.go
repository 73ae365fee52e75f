// Package testutil provides an in-memory database for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/db"
)

// NewSQLite returns a migrated in-memory SQLite database. Every :memory:
// connection is a separate database, so the pool is pinned to one connection.
func NewSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.Migrate(context.Background(), database))
	return database
}

// SeedListing inserts a listing owned by ownerID and returns its id.
func SeedListing(t *testing.T, database *sqlx.DB, ownerID int64, status string) int64 {
	t.Helper()
	var id int64
	err := database.QueryRowx(database.Rebind(`INSERT INTO listings (user_id, status) VALUES (?, ?) RETURNING id`), ownerID, status).Scan(&id)
	require.NoError(t, err)
	return id
}

// ContactsCount reads the listing's contact counter.
func ContactsCount(t *testing.T, database *sqlx.DB, listingID int64) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, database.Rebind(`SELECT contacts_count FROM listings WHERE id = ?`), listingID))
	return n
}
