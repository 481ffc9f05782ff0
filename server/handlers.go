package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/factorydtw/roomboard/telemetry"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRemoteFailure logs the underlying auth/transport error and surfaces
// only a generic failure; credential and stack detail stay out of responses.
func writeRemoteFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	telemetry.LoggerWithCorr(r.Context()).Error("remote call failed", slog.String("op", op), slog.Any("err", err))
	writeJSON(w, http.StatusBadGateway, map[string]string{
		"message": "Something went wrong talking to the booking service. Please try again.",
	})
}
