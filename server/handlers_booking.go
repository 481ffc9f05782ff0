package server

import (
	"net/http"
	"strconv"

	"github.com/factorydtw/roomboard/booking"
)

// HandleBook validates booking details and opens a draft. Field errors come
// back all at once so the chat dialog can mark every bad field in a single
// round trip.
func (h *Handlers) HandleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := h.deps.Orchestrator.SubmitDetails(r.Context(),
		r.FormValue("date"), r.FormValue("start"), r.FormValue("end"), r.FormValue("purpose"))
	if err != nil {
		writeRemoteFailure(w, r, "submit details", err)
		return
	}
	if res.Validation != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"state":  res.State,
			"errors": res.Validation.Fields,
		})
		return
	}
	type roomOption struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}
	options := make([]roomOption, 0, len(res.Rooms))
	for i, room := range res.Rooms {
		options = append(options, roomOption{Index: i, Name: room.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    res.State,
		"draft_id": res.DraftID,
		"rooms":    options,
	})
}

// HandleSelectRoom finalizes a draft against the chosen room. The outcome is
// always a chat-displayable message; expired sessions and provider rejections
// are outcomes, not errors.
func (h *Handlers) HandleSelectRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roomIndex, err := strconv.Atoi(r.FormValue("room_index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "room_index must be a number"})
		return
	}
	outcome, err := h.deps.Orchestrator.SelectRoom(r.Context(),
		r.FormValue("draft_id"), roomIndex, r.FormValue("user_email"))
	if err != nil {
		writeRemoteFailure(w, r, "select room", err)
		return
	}
	body := map[string]any{
		"state":   outcome.State,
		"message": outcome.Message,
	}
	if outcome.SessionExpired {
		body["session_expired"] = true
	}
	if outcome.State == booking.StateBooked {
		body["event_id"] = outcome.Event.ID
		body["room"] = outcome.Room.Name
	}
	writeJSON(w, http.StatusOK, body)
}
