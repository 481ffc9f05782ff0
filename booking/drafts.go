package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factorydtw/roomboard/telemetry"
)

// DraftTTL bounds how long a draft stays resolvable after creation.
const DraftTTL = time.Hour

// Draft is an in-progress booking awaiting room selection, keyed by an opaque
// session id that survives across chat round trips.
type Draft struct {
	ID        string
	Purpose   string
	Start     time.Time
	End       time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DraftStore holds in-flight booking drafts. Only the orchestrator mutates
// drafts; everything else treats them as read-only.
type DraftStore interface {
	// Create mints a fresh globally-unique id and stores a draft expiring
	// DraftTTL from now.
	Create(ctx context.Context, purpose string, start, end time.Time) (Draft, error)
	// Resolve returns the draft if present and unexpired, ErrDraftNotFound
	// otherwise. Expiry is checked lazily here; nothing sweeps proactively.
	Resolve(ctx context.Context, id string) (Draft, error)
}

// MemoryDraftStore is the in-process DraftStore. Resolved drafts are not
// removed, so a draft remains resolvable until its TTL lapses even after a
// booking went through; a long-running process accumulates stale entries.
type MemoryDraftStore struct {
	Now func() time.Time // test hook; defaults to time.Now

	mu     sync.Mutex
	drafts map[string]Draft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]Draft)}
}

func (s *MemoryDraftStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MemoryDraftStore) Create(_ context.Context, purpose string, start, end time.Time) (Draft, error) {
	now := s.now()
	d := Draft{
		ID:        uuid.NewString(),
		Purpose:   purpose,
		Start:     start,
		End:       end,
		CreatedAt: now,
		ExpiresAt: now.Add(DraftTTL),
	}
	s.mu.Lock()
	s.drafts[d.ID] = d
	telemetry.SetOpenDrafts(len(s.drafts))
	s.mu.Unlock()
	return d, nil
}

func (s *MemoryDraftStore) Resolve(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	s.mu.Unlock()
	if !ok || !s.now().Before(d.ExpiresAt) {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}
