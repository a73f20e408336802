package services_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// openTestSQLite returns a migrated in-memory SQLite database
func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenSQLite(database.SQLiteMemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	database.SilenceMigrationLogs()
	require.NoError(t, database.RunMigrations(context.Background(), db, database.DialectSQLite))

	return db
}
