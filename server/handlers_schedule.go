package server

import (
	"net/http"

	"github.com/factorydtw/roomboard/schedule"
	"github.com/factorydtw/roomboard/telemetry"
)

// HandleSchedule renders the agenda for the requesting user. The chat
// platform resolves the user's email before calling; identity lookup is not
// this service's job.
func (h *Handlers) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userEmail := r.FormValue("user_email")

	schedules, err := h.deps.Joan.GetReservations(r.Context())
	if err != nil {
		writeRemoteFailure(w, r, "get reservations", err)
		return
	}
	blocks := schedule.Render(schedules, userEmail, h.deps.Index, h.deps.RenderOpts)
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

// HandleCancel cancels a reservation by event id, resolving the room through
// the index the last render populated. There is no idempotency guard: posting
// the same event id twice issues two remote cancel calls.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	eventID := r.FormValue("event_id")
	if eventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing event_id"})
		return
	}
	entry, ok := h.deps.Index.Lookup(eventID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": "I don't know that event. Ask for the schedule again first.",
		})
		return
	}
	if err := h.deps.Joan.CancelEvent(r.Context(), eventID, entry.RoomID); err != nil {
		writeRemoteFailure(w, r, "cancel", err)
		return
	}
	if telemetry.Cancellations != nil {
		telemetry.Cancellations.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "_" + entry.Summary + "_ was cancelled.",
	})
}
