package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/factorydtw/roomboard/booking"
)

// DraftStore is the Postgres-backed booking.DraftStore. Drafts survive
// restarts and are shared across instances. Matching the in-memory store,
// resolved drafts are not deleted and expiry is only checked at lookup time;
// stale rows accumulate until operators prune them.
type DraftStore struct {
	DB  *sql.DB
	Now func() time.Time // test hook; defaults to time.Now
}

func (s *DraftStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DraftStore) Create(ctx context.Context, purpose string, start, end time.Time) (booking.Draft, error) {
	now := s.now()
	d := booking.Draft{
		ID:        uuid.NewString(),
		Purpose:   purpose,
		Start:     start,
		End:       end,
		CreatedAt: now,
		ExpiresAt: now.Add(booking.DraftTTL),
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO booking_drafts (id, purpose, start_at, end_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Purpose, d.Start, d.End, d.CreatedAt, d.ExpiresAt)
	if err != nil {
		return booking.Draft{}, err
	}
	return d, nil
}

func (s *DraftStore) Resolve(ctx context.Context, id string) (booking.Draft, error) {
	var d booking.Draft
	row := s.DB.QueryRowContext(ctx, `SELECT id, purpose, start_at, end_at, created_at, expires_at
		FROM booking_drafts WHERE id=$1`, id)
	if err := row.Scan(&d.ID, &d.Purpose, &d.Start, &d.End, &d.CreatedAt, &d.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.Draft{}, booking.ErrDraftNotFound
		}
		return booking.Draft{}, err
	}
	if !s.now().Before(d.ExpiresAt) {
		return booking.Draft{}, booking.ErrDraftNotFound
	}
	return d, nil
}

// AuditRecorder is the Postgres-backed booking.AuditRecorder.
type AuditRecorder struct {
	DB *sql.DB
}

func (a *AuditRecorder) RecordBooking(ctx context.Context, e booking.AuditEntry) error {
	_, err := a.DB.ExecContext(ctx, `INSERT INTO booking_audit
		(draft_id, room_id, room_name, organizer_email, start_at, end_at, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.DraftID, e.RoomID, e.RoomName, e.OrganizerEmail, e.Start, e.End, e.Outcome, e.Detail)
	return err
}
