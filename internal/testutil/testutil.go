// Package testutil provides shared test helpers for setting up stores and
// snapshot media.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/laguz/internal/userstore"
)

// TestUserStore creates a temporary SQLite-backed forest store that is
// automatically cleaned up.
func TestUserStore(t *testing.T) *userstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := userstore.Open(userstore.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
