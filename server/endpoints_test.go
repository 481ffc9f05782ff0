package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/factorydtw/roomboard/booking"
	"github.com/factorydtw/roomboard/config"
	"github.com/factorydtw/roomboard/joanapi"
	"github.com/factorydtw/roomboard/schedule"
	"github.com/factorydtw/roomboard/testutil"
)

func newTestDeps(t *testing.T, m *testutil.MockJoanServer) Deps {
	t.Helper()
	m.MockToken("srv-test-token", 3600)

	t.Setenv("JOAN_CONSUMER_KEY", "ck")
	t.Setenv("JOAN_CONSUMER_SECRET", "cs")
	t.Setenv("CHAT_SIGNING_SECRET", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	tokens := &joanapi.TokenSource{BaseURL: m.URL, ClientID: "ck", ClientSecret: "cs"}
	joan := &joanapi.Client{BaseURL: m.URL, Tokens: tokens, Timezone: cfg.Timezone}

	return Deps{
		Cfg: cfg,
		Orchestrator: &booking.Orchestrator{
			Drafts:    booking.NewMemoryDraftStore(),
			Rooms:     &booking.RoomDirectory{Source: joan},
			Inventory: joan,
			Location:  cfg.Location(),
			Timezone:  cfg.Timezone,
		},
		Joan:  joan,
		Index: schedule.NewEventIndex(),
		RenderOpts: schedule.Options{
			GenericSummary:  cfg.GenericSummary,
			DeskOwnerPrefix: cfg.DeskOwnerPrefix,
			Location:        cfg.Location(),
		},
	}
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func TestBookingFlowEndToEnd(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	m.MockRooms([]map[string]string{
		{"id": "r2", "name": "Walnut", "email": "walnut@rooms.example.com"},
		{"id": "r1", "name": "Birch", "email": "birch@rooms.example.com"},
	})
	m.Handlers["/api/v1.0/events/book/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "ev-42", "summary": "planning"})
	}
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/commands/book", url.Values{
		"date": {"03/01/2030"}, "start": {"09:00 AM"}, "end": {"10:00 AM"}, "purpose": {"planning"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("book status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	draftID, _ := body["draft_id"].(string)
	if draftID == "" {
		t.Fatalf("no draft_id in %v", body)
	}
	rooms, _ := body["rooms"].([]any)
	if len(rooms) != 2 {
		t.Fatalf("rooms = %v, want 2 candidates", body["rooms"])
	}
	first := rooms[0].(map[string]any)
	if first["name"] != "Birch" {
		t.Errorf("first candidate = %v, want Birch (name-ascending)", first)
	}

	rec = postForm(t, mux, "/interactions/select-room", url.Values{
		"draft_id": {draftID}, "room_index": {"0"}, "user_email": {"a@example.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("select-room status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["state"] != string(booking.StateBooked) {
		t.Errorf("state = %v, want BOOKED", body["state"])
	}
	if body["event_id"] != "ev-42" {
		t.Errorf("event_id = %v", body["event_id"])
	}
}

func TestBookValidationErrors(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/commands/book", url.Values{
		"date": {"02/30/2024"}, "start": {"09:00 AM"}, "end": {"10:00 AM"}, "purpose": {"x"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := decodeBody(t, rec)
	errs, _ := body["errors"].(map[string]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly one", errs)
	}
	if _, ok := errs["date"]; !ok {
		t.Errorf("errors = %v, want date error", errs)
	}
}

func TestSelectRoomSessionExpired(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	m.MockRooms([]map[string]string{{"id": "r1", "name": "Birch", "email": "b@rooms.example.com"}})
	var bookCalls int
	m.Handlers["/api/v1.0/events/book/"] = func(w http.ResponseWriter, r *http.Request) {
		bookCalls++
		w.WriteHeader(http.StatusOK)
	}
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/interactions/select-room", url.Values{
		"draft_id": {"never-issued"}, "room_index": {"0"}, "user_email": {"a@example.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["session_expired"] != true {
		t.Errorf("body = %v, want session_expired", body)
	}
	if bookCalls != 0 {
		t.Errorf("book calls = %d, want 0", bookCalls)
	}
}

func TestScheduleThenCancel(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	later := time.Now().Add(3 * time.Hour).UTC().Format(time.RFC3339)
	m.MockReservations([]map[string]any{{
		"room": map[string]string{"id": "r1", "name": "Birch", "email": "b@rooms.example.com"},
		"events": []map[string]any{{
			"id":        "ev-1",
			"start":     future,
			"end":       later,
			"summary":   "Planning",
			"organizer": map[string]string{"email": "me@example.com", "displayName": "Me"},
			"resource":  "r1",
		}},
	}})
	var cancelPayload map[string]any
	m.Handlers["/api/v1.0/events/cancel/"] = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&cancelPayload)
		w.WriteHeader(http.StatusOK)
	}
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/commands/schedule", url.Values{"user_email": {"me@example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("schedule status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	blocks, _ := body["blocks"].([]any)
	if len(blocks) != 3 { // header, event, divider
		t.Fatalf("blocks = %v, want 3", body["blocks"])
	}
	eventBlock := blocks[1].(map[string]any)
	if eventBlock["cancel_event_id"] != "ev-1" {
		t.Errorf("event block = %v, want cancel affordance for own event", eventBlock)
	}

	// Cancel rides on the index populated by the render above.
	rec = postForm(t, mux, "/interactions/cancel", url.Values{"event_id": {"ev-1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Planning") {
		t.Errorf("cancel message = %v, want event summary", body["message"])
	}
	if cancelPayload["event_id"] != "ev-1" || cancelPayload["room_id"] != "r1" {
		t.Errorf("cancel payload = %v", cancelPayload)
	}
}

func TestCancelUnknownEvent(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/interactions/cancel", url.Values{"event_id": {"nope"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRemoteFailureIsGeneric(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	m.Handlers["/api/v1.0/events/"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("secret internal detail"))
	}
	mux := NewMux(context.Background(), newTestDeps(t, m))

	rec := postForm(t, mux, "/commands/schedule", url.Values{"user_email": {"me@example.com"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret internal detail") {
		t.Error("remote error detail leaked to caller")
	}
}

func TestHealthz(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	mux := NewMux(context.Background(), newTestDeps(t, m))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}

func TestReadyzMissingCredentials(t *testing.T) {
	m := testutil.NewMockJoanServer(t)
	deps := newTestDeps(t, m)
	deps.Cfg.JoanClientID = ""
	mux := NewMux(context.Background(), deps)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503 without credentials", rec.Code)
	}
}
