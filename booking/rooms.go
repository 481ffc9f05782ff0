package booking

import (
	"context"
	"sort"
	"sync"

	"github.com/factorydtw/roomboard/joanapi"
)

// RoomLister is the slice of the Joan client the directory needs.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]joanapi.Room, error)
}

// RoomDirectory caches the bookable room inventory for the life of the
// process, sorted ascending by name. Once the cache is non-empty it is never
// invalidated: a room added or renamed upstream is invisible until restart.
// That staleness is accepted; restart to pick up inventory changes.
type RoomDirectory struct {
	Source RoomLister

	mu    sync.Mutex
	rooms []joanapi.Room
}

// Rooms returns the cached room list, fetching and sorting it on first use.
// A fetch failure leaves the cache empty so the next call retries.
func (d *RoomDirectory) Rooms(ctx context.Context) ([]joanapi.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rooms) > 0 {
		return d.rooms, nil
	}
	rooms, err := d.Source.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	d.rooms = rooms
	return d.rooms, nil
}
