package schedule

import "sync"

// IndexEntry retains what the cancel flow needs about a rendered event.
type IndexEntry struct {
	RoomID  string
	Summary string
}

// EventIndex maps event ids to their rooms across request boundaries: the
// render call that shows a cancel button and the cancel interaction that
// presses it arrive as separate HTTP requests. Entries are overwritten on
// every render and never expire.
type EventIndex struct {
	mu      sync.RWMutex
	entries map[string]IndexEntry
}

func NewEventIndex() *EventIndex {
	return &EventIndex{entries: make(map[string]IndexEntry)}
}

func (i *EventIndex) Put(eventID string, e IndexEntry) {
	i.mu.Lock()
	i.entries[eventID] = e
	i.mu.Unlock()
}

func (i *EventIndex) Lookup(eventID string) (IndexEntry, bool) {
	i.mu.RLock()
	e, ok := i.entries[eventID]
	i.mu.RUnlock()
	return e, ok
}
