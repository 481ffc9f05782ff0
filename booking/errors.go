package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDraftNotFound is returned when a draft id is unknown or its TTL has
// elapsed. Expired entries may still be physically retained; lookups treat
// them as absent either way.
var ErrDraftNotFound = errors.New("booking draft not found or expired")

// ValidationError carries every field-level problem found in one pass over a
// booking submission, keyed by field name ("date", "start", "end").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid booking details: " + strings.Join(parts, "; ")
}
