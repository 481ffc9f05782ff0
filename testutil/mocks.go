package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockJoanServer creates a test server that mocks Joan API responses.
type MockJoanServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockJoanServer creates a new mock Joan API server. Register handlers by
// path; unregistered paths return 404.
func NewMockJoanServer(t *testing.T) *MockJoanServer {
	t.Helper()
	m := &MockJoanServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockToken adds a handler for the token endpoint returning the given token.
func (m *MockJoanServer) MockToken(token string, expiresIn int) {
	m.Handlers["/api/token/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": token,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		})
	}
}

// MockRooms adds a handler for the rooms endpoint.
func (m *MockJoanServer) MockRooms(rooms []map[string]string) {
	m.Handlers["/api/v1.0/rooms/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rooms)
	}
}

// MockReservations adds a handler for the events endpoint with a raw payload.
func (m *MockJoanServer) MockReservations(payload any) {
	m.Handlers["/api/v1.0/events/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}
