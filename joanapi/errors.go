package joanapi

import "fmt"

// AuthError indicates the client-credentials grant itself failed. A cached
// token, even an expired one, is left in place so callers can decide to retry.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("joan auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// TransportError indicates a remote call failed at the network or HTTP layer.
type TransportError struct {
	Op     string // "list rooms", "get reservations", "book", "cancel"
	Status int    // 0 when the request never produced a response
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("joan %s: http %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("joan %s: %v", e.Op, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// ConflictError indicates Joan rejected a booking, typically because the room
// is already taken for the requested interval.
type ConflictError struct {
	RoomEmail string
	Detail    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("joan booking rejected for %s: %s", e.RoomEmail, e.Detail)
}
