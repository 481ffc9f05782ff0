package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// migrations mirrors db.Migrate; duplicated here to avoid an import cycle
// between testutil and db.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS booking_drafts (
		id TEXT PRIMARY KEY,
		purpose TEXT NOT NULL DEFAULT '',
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS booking_audit (
		id SERIAL PRIMARY KEY,
		draft_id TEXT NOT NULL,
		room_id TEXT NOT NULL DEFAULT '',
		room_name TEXT NOT NULL DEFAULT '',
		organizer_email TEXT NOT NULL DEFAULT '',
		start_at TIMESTAMPTZ,
		end_at TIMESTAMPTZ,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// SetupTestDB creates a test database connection and applies the schema.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres test")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	ctx := context.Background()
	for _, stmt := range migrations {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("apply test schema: %v", err)
		}
	}
	return database
}
