// Package db provides database connection helpers, schema migration, and the
// Postgres-backed draft store and booking audit trail.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS booking_drafts (
			id TEXT PRIMARY KEY,
			purpose TEXT NOT NULL DEFAULT '',
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_drafts_expires_at ON booking_drafts(expires_at)`,
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
		`CREATE INDEX IF NOT EXISTS idx_booking_audit_recorded_at ON booking_audit(recorded_at)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
