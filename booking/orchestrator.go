// Package booking drives a room booking from raw chat form input to a
// confirmed or failed reservation, across several independent request/response
// round trips. It owns the draft store, the room directory cache, and the
// state machine that ties them to the Joan inventory API.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/factorydtw/roomboard/joanapi"
	"github.com/factorydtw/roomboard/telemetry"
)

// State tracks a booking attempt through its lifecycle. BOOKED and FAILED are
// terminal.
type State string

const (
	StateCollectingDetails State = "COLLECTING_DETAILS"
	StateValidating        State = "VALIDATING"
	StateSelectingRoom     State = "SELECTING_ROOM"
	StateBooking           State = "BOOKING"
	StateBooked            State = "BOOKED"
	StateFailed            State = "FAILED"
)

// Inventory is the slice of the Joan client the orchestrator books through.
type Inventory interface {
	BookEvent(ctx context.Context, br joanapi.BookingRequest) (joanapi.Event, error)
}

// AuditEntry records the terminal outcome of a booking attempt.
type AuditEntry struct {
	DraftID        string
	RoomID         string
	RoomName       string
	OrganizerEmail string
	Start          time.Time
	End            time.Time
	Outcome        string // "booked", "rejected", "failed"
	Detail         string
}

// AuditRecorder persists booking outcomes. Optional; a nil recorder disables
// the audit trail.
type AuditRecorder interface {
	RecordBooking(ctx context.Context, e AuditEntry) error
}

// Orchestrator composes the draft store, the room directory, and the Joan
// client. It performs no retries and no idempotency guarding: a duplicate
// submission of the same draft produces a duplicate remote booking call.
type Orchestrator struct {
	Drafts    DraftStore
	Rooms     *RoomDirectory
	Inventory Inventory
	Location  *time.Location
	Timezone  string
	Audit     AuditRecorder // optional
}

// SubmitResult is the outcome of the detail-collection step.
type SubmitResult struct {
	State      State
	DraftID    string
	Rooms      []joanapi.Room
	Validation *ValidationError
}

// SubmitDetails validates the raw form fields and, on success, opens a draft
// and returns the full candidate room list. Candidates are not filtered by
// availability; two users can race for the same interval and Joan arbitrates
// at booking time. On validation failure no draft is created and every field
// error is reported at once.
func (o *Orchestrator) SubmitDetails(ctx context.Context, rawDate, rawStart, rawEnd, purpose string) (SubmitResult, error) {
	details, verr := ParseDetails(rawDate, rawStart, rawEnd, purpose, o.Location)
	if verr != nil {
		if telemetry.ValidationRejects != nil {
			telemetry.ValidationRejects.Inc()
		}
		return SubmitResult{State: StateFailed, Validation: verr}, nil
	}

	rooms, err := o.Rooms.Rooms(ctx)
	if err != nil {
		return SubmitResult{State: StateFailed}, err
	}

	draft, err := o.Drafts.Create(ctx, details.Purpose, details.Start, details.End)
	if err != nil {
		return SubmitResult{State: StateFailed}, err
	}
	if telemetry.BookingsStarted != nil {
		telemetry.BookingsStarted.Inc()
	}
	return SubmitResult{State: StateSelectingRoom, DraftID: draft.ID, Rooms: rooms}, nil
}

// Outcome is the terminal result of the room-selection step.
type Outcome struct {
	State          State
	SessionExpired bool
	Room           joanapi.Room
	Event          joanapi.Event
	Message        string
}

// SelectRoom resolves the draft and books the chosen room. An unknown or
// expired draft fails with a session-expired outcome and makes no remote
// call. Auth and transport details are logged here, not surfaced: the caller
// gets a room-specific failure message fit for chat display.
func (o *Orchestrator) SelectRoom(ctx context.Context, draftID string, roomIndex int, organizerEmail string) (Outcome, error) {
	draft, err := o.Drafts.Resolve(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			if telemetry.BookingsFailed != nil {
				telemetry.BookingsFailed.Inc()
			}
			return Outcome{
				State:          StateFailed,
				SessionExpired: true,
				Message:        "That booking session has expired. Please start over.",
			}, nil
		}
		return Outcome{State: StateFailed}, err
	}

	rooms, err := o.Rooms.Rooms(ctx)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if roomIndex < 0 || roomIndex >= len(rooms) {
		return Outcome{State: StateFailed, Message: "That room is no longer offered. Please start over."}, nil
	}
	room := rooms[roomIndex]

	ev, err := o.Inventory.BookEvent(ctx, joanapi.BookingRequest{
		RoomEmail:      room.Email,
		Start:          draft.Start,
		End:            draft.End,
		Timezone:       o.Timezone,
		OrganizerEmail: organizerEmail,
		Title:          draft.Purpose,
	})
	if err != nil {
		if telemetry.BookingsFailed != nil {
			telemetry.BookingsFailed.Inc()
		}
		outcome := "failed"
		var ce *joanapi.ConflictError
		if errors.As(err, &ce) {
			outcome = "rejected"
		}
		slog.Warn("booking failed", slog.String("room", room.Name), slog.String("draft_id", draftID), slog.Any("err", err))
		o.record(ctx, draft, room, organizerEmail, outcome, err.Error())
		return Outcome{
			State:   StateFailed,
			Room:    room,
			Message: fmt.Sprintf("Unable to book %s for that time. It may already be taken.", room.Name),
		}, nil
	}

	if telemetry.BookingsConfirmed != nil {
		telemetry.BookingsConfirmed.Inc()
	}
	o.record(ctx, draft, room, organizerEmail, "booked", "")
	return Outcome{
		State:   StateBooked,
		Room:    room,
		Event:   ev,
		Message: fmt.Sprintf("Booked %s.", room.Name),
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, draft Draft, room joanapi.Room, organizerEmail, outcome, detail string) {
	if o.Audit == nil {
		return
	}
	err := o.Audit.RecordBooking(ctx, AuditEntry{
		DraftID:        draft.ID,
		RoomID:         room.ID,
		RoomName:       room.Name,
		OrganizerEmail: organizerEmail,
		Start:          draft.Start,
		End:            draft.End,
		Outcome:        outcome,
		Detail:         detail,
	})
	if err != nil {
		slog.Warn("booking audit write failed", slog.String("draft_id", draft.ID), slog.Any("err", err))
	}
}
