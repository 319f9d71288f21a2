// Package testing provides testing utilities and helpers for the papertrade project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/papertrade/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temporary directory
// with the named schema applied ("ledger", "cache"; unknown names get an
// empty database). The database is closed when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case "ledger":
		profile = database.ProfileLedger
	case "cache":
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
