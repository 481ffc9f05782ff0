// Package joanapi contains the HTTP client for the Joan room-booking service:
// token acquisition, room directory, reservation listing, booking, and
// cancellation, all using a client-credentials app token.
package joanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/factorydtw/roomboard/telemetry"
)

const (
	roomsPath  = "/api/v1.0/rooms/"
	eventsPath = "/api/v1.0/events/"
	cancelPath = "/api/v1.0/events/cancel/"
	bookPath   = "/api/v1.0/events/book/"
)

// Room is a bookable room as reported by Joan. Immutable once fetched.
type Room struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Organizer identifies who holds a reservation.
type Organizer struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Event is a single reservation. Resource carries the Joan room id the event
// belongs to; bookings made on-device report it instead of a room object.
type Event struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Summary   string    `json:"summary"`
	Organizer Organizer `json:"organizer"`
	Resource  string    `json:"resource"`
}

// RoomSchedule pairs a room with its active events, in the order Joan reports them.
type RoomSchedule struct {
	Room   Room    `json:"room"`
	Events []Event `json:"events"`
}

// BookingRequest is the payload for booking a room through Joan.
type BookingRequest struct {
	RoomEmail      string
	Start          time.Time
	End            time.Time
	Timezone       string
	OrganizerEmail string
	Title          string
}

// Client provides the Joan API methods the service needs.
type Client struct {
	BaseURL    string
	Tokens     *TokenSource
	Timezone   string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	tok, err := c.Tokens.Get(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http().Do(req)
	telemetry.ObserveInventoryCall(op, time.Since(start))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", string(b))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	return nil
}

// ListRooms fetches the full room inventory. Order is whatever Joan returns;
// the directory layer sorts.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.do(ctx, "list rooms", http.MethodGet, roomsPath, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetReservations fetches all active reservations grouped by room, preserving
// Joan's room order.
func (c *Client) GetReservations(ctx context.Context) ([]RoomSchedule, error) {
	var schedules []RoomSchedule
	if err := c.do(ctx, "get reservations", http.MethodGet, eventsPath, nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// BookEvent books a room and returns the confirmed event. A 409 from Joan
// (room taken for the interval) surfaces as *ConflictError; the service does
// no conflict detection of its own.
func (c *Client) BookEvent(ctx context.Context, br BookingRequest) (Event, error) {
	payload := map[string]any{
		"source":    br.RoomEmail,
		"start":     br.Start.Format(time.RFC3339),
		"end":       br.End.Format(time.RFC3339),
		"timezone":  br.Timezone,
		"organizer": br.OrganizerEmail,
		"title":     br.Title,
		"confirm":   true,
	}
	var ev Event
	err := c.do(ctx, "book", http.MethodPost, bookPath, payload, &ev)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Status == http.StatusConflict {
			return Event{}, &ConflictError{RoomEmail: br.RoomEmail, Detail: te.Err.Error()}
		}
		return Event{}, err
	}
	return ev, nil
}

// CancelEvent cancels a reservation. finish=false matches Joan's semantics of
// removing the booking rather than ending it early.
func (c *Client) CancelEvent(ctx context.Context, eventID, roomID string) error {
	payload := map[string]any{
		"finish":   false,
		"event_id": eventID,
		"room_id":  roomID,
		"timezone": c.Timezone,
	}
	return c.do(ctx, "cancel", http.MethodPost, cancelPath, payload, nil)
}
