package booking

import (
	"context"
	"testing"
	"time"

	"github.com/factorydtw/roomboard/joanapi"
)

type fakeInventory struct {
	rooms     []joanapi.Room
	roomCalls int
	bookCalls int
	bookErr   error
	booked    []joanapi.BookingRequest
}

func (f *fakeInventory) ListRooms(context.Context) ([]joanapi.Room, error) {
	f.roomCalls++
	return append([]joanapi.Room(nil), f.rooms...), nil
}

func (f *fakeInventory) BookEvent(_ context.Context, br joanapi.BookingRequest) (joanapi.Event, error) {
	f.bookCalls++
	f.booked = append(f.booked, br)
	if f.bookErr != nil {
		return joanapi.Event{}, f.bookErr
	}
	return joanapi.Event{ID: "ev-booked", Summary: br.Title, Start: br.Start, End: br.End}, nil
}

func newTestOrchestrator(t *testing.T, inv *fakeInventory) *Orchestrator {
	t.Helper()
	if inv.rooms == nil {
		inv.rooms = []joanapi.Room{
			{ID: "r1", Name: "Birch", Email: "birch@rooms.example.com"},
			{ID: "r2", Name: "Cedar", Email: "cedar@rooms.example.com"},
		}
	}
	loc, err := time.LoadLocation("America/Detroit")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return &Orchestrator{
		Drafts:    NewMemoryDraftStore(),
		Rooms:     &RoomDirectory{Source: inv},
		Inventory: inv,
		Location:  loc,
		Timezone:  "America/Detroit",
	}
}

func TestSubmitDetailsOpensDraft(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)

	res, err := o.SubmitDetails(context.Background(), "03/01/2024", "09:00 AM", "10:00 AM", "planning")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	if res.State != StateSelectingRoom {
		t.Errorf("state = %s, want %s", res.State, StateSelectingRoom)
	}
	if res.DraftID == "" {
		t.Error("draft id empty")
	}
	if len(res.Rooms) != 2 || res.Rooms[0].Name != "Birch" {
		t.Errorf("rooms = %v, want sorted candidates", res.Rooms)
	}

	draft, err := o.Drafts.Resolve(context.Background(), res.DraftID)
	if err != nil {
		t.Fatalf("draft not stored: %v", err)
	}
	if draft.Purpose != "planning" {
		t.Errorf("draft purpose = %q", draft.Purpose)
	}
}

func TestSubmitDetailsValidationFailureHasNoSideEffects(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)

	res, err := o.SubmitDetails(context.Background(), "02/30/2024", "09:00 AM", "10:00 AM", "x")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("state = %s, want %s", res.State, StateFailed)
	}
	if res.Validation == nil || len(res.Validation.Fields) != 1 {
		t.Fatalf("validation = %v, want exactly one field error", res.Validation)
	}
	if res.DraftID != "" {
		t.Error("draft created despite validation failure")
	}
	if inv.roomCalls != 0 {
		t.Errorf("room fetches = %d, want 0", inv.roomCalls)
	}
}

func TestSelectRoomBooks(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)
	ctx := context.Background()

	res, err := o.SubmitDetails(ctx, "03/01/2024", "09:00 AM", "10:00 AM", "planning")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	outcome, err := o.SelectRoom(ctx, res.DraftID, 1, "a@example.com")
	if err != nil {
		t.Fatalf("SelectRoom: %v", err)
	}
	if outcome.State != StateBooked {
		t.Fatalf("state = %s, want %s (message %q)", outcome.State, StateBooked, outcome.Message)
	}
	if outcome.Room.Name != "Cedar" {
		t.Errorf("room = %s, want Cedar (index 1, name order)", outcome.Room.Name)
	}
	if outcome.Event.ID != "ev-booked" {
		t.Errorf("event = %+v", outcome.Event)
	}

	if inv.bookCalls != 1 {
		t.Fatalf("book calls = %d, want 1", inv.bookCalls)
	}
	br := inv.booked[0]
	if br.RoomEmail != "cedar@rooms.example.com" {
		t.Errorf("booked room email = %q", br.RoomEmail)
	}
	if br.OrganizerEmail != "a@example.com" {
		t.Errorf("organizer = %q", br.OrganizerEmail)
	}
	if br.Title != "planning" {
		t.Errorf("title = %q, want draft purpose", br.Title)
	}
	if br.Timezone != "America/Detroit" {
		t.Errorf("timezone = %q", br.Timezone)
	}
}

func TestSelectRoomUnknownDraft(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)

	outcome, err := o.SelectRoom(context.Background(), "never-issued", 0, "a@example.com")
	if err != nil {
		t.Fatalf("SelectRoom: %v", err)
	}
	if outcome.State != StateFailed || !outcome.SessionExpired {
		t.Errorf("outcome = %+v, want FAILED with session expired", outcome)
	}
	if inv.bookCalls != 0 {
		t.Errorf("book calls = %d, want 0 for unknown draft", inv.bookCalls)
	}
}

func TestSelectRoomExpiredDraft(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)
	ctx := context.Background()

	now := time.Now()
	store := o.Drafts.(*MemoryDraftStore)
	store.Now = func() time.Time { return now }

	res, err := o.SubmitDetails(ctx, "03/01/2024", "09:00 AM", "10:00 AM", "x")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	store.Now = func() time.Time { return now.Add(DraftTTL + time.Minute) }

	outcome, err := o.SelectRoom(ctx, res.DraftID, 0, "a@example.com")
	if err != nil {
		t.Fatalf("SelectRoom: %v", err)
	}
	if outcome.State != StateFailed || !outcome.SessionExpired {
		t.Errorf("outcome = %+v, want FAILED with session expired", outcome)
	}
	if inv.bookCalls != 0 {
		t.Errorf("book calls = %d, want 0 for expired draft", inv.bookCalls)
	}
}

func TestSelectRoomProviderRejection(t *testing.T) {
	inv := &fakeInventory{bookErr: &joanapi.ConflictError{RoomEmail: "birch@rooms.example.com", Detail: "taken"}}
	o := newTestOrchestrator(t, inv)
	ctx := context.Background()

	res, err := o.SubmitDetails(ctx, "03/01/2024", "09:00 AM", "10:00 AM", "x")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	outcome, err := o.SelectRoom(ctx, res.DraftID, 0, "a@example.com")
	if err != nil {
		t.Fatalf("SelectRoom: %v", err)
	}
	if outcome.State != StateFailed {
		t.Errorf("state = %s, want %s", outcome.State, StateFailed)
	}
	if outcome.Message == "" || outcome.Room.Name != "Birch" {
		t.Errorf("outcome = %+v, want room-specific failure message", outcome)
	}
}

func TestSelectRoomIndexOutOfRange(t *testing.T) {
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)
	ctx := context.Background()

	res, err := o.SubmitDetails(ctx, "03/01/2024", "09:00 AM", "10:00 AM", "x")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	outcome, err := o.SelectRoom(ctx, res.DraftID, 99, "a@example.com")
	if err != nil {
		t.Fatalf("SelectRoom: %v", err)
	}
	if outcome.State != StateFailed {
		t.Errorf("state = %s, want %s", outcome.State, StateFailed)
	}
	if inv.bookCalls != 0 {
		t.Errorf("book calls = %d, want 0", inv.bookCalls)
	}
}

func TestSelectRoomNoIdempotencyGuard(t *testing.T) {
	// Re-submitting the same draft issues a second remote booking call.
	inv := &fakeInventory{}
	o := newTestOrchestrator(t, inv)
	ctx := context.Background()

	res, err := o.SubmitDetails(ctx, "03/01/2024", "09:00 AM", "10:00 AM", "x")
	if err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := o.SelectRoom(ctx, res.DraftID, 0, "a@example.com"); err != nil {
			t.Fatalf("SelectRoom #%d: %v", i+1, err)
		}
	}
	if inv.bookCalls != 2 {
		t.Errorf("book calls = %d, want 2 (duplicate submission is not guarded)", inv.bookCalls)
	}
}
