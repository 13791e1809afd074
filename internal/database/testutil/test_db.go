package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkeye/Board/internal/database"
)

// MustOpenTestDB opens a private in-memory SQLite database for tests and
// applies the given migrators. The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, migrators ...database.Migrator) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, migrators...))

	t.Cleanup(func() {
		_ = database.Close(db)
	})

	return db
}
