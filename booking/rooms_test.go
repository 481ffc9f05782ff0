package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/factorydtw/roomboard/joanapi"
)

type fakeRoomLister struct {
	rooms []joanapi.Room
	err   error
	calls int
}

func (f *fakeRoomLister) ListRooms(context.Context) ([]joanapi.Room, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]joanapi.Room(nil), f.rooms...), nil
}

func TestRoomDirectorySortsByName(t *testing.T) {
	lister := &fakeRoomLister{rooms: []joanapi.Room{
		{ID: "r3", Name: "Walnut"},
		{ID: "r1", Name: "Birch"},
		{ID: "r2", Name: "Cedar"},
	}}
	dir := &RoomDirectory{Source: lister}

	rooms, err := dir.Rooms(context.Background())
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	want := []string{"Birch", "Cedar", "Walnut"}
	for i, name := range want {
		if rooms[i].Name != name {
			t.Errorf("rooms[%d] = %s, want %s", i, rooms[i].Name, name)
		}
	}
}

func TestRoomDirectoryCachesForProcessLifetime(t *testing.T) {
	lister := &fakeRoomLister{rooms: []joanapi.Room{{ID: "r1", Name: "Birch"}}}
	dir := &RoomDirectory{Source: lister}
	ctx := context.Background()

	if _, err := dir.Rooms(ctx); err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	// Upstream change is invisible once the cache is warm; only a restart
	// picks it up.
	lister.rooms = append(lister.rooms, joanapi.Room{ID: "r2", Name: "Cedar"})
	rooms, err := dir.Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 1 {
		t.Errorf("len(rooms) = %d, want 1 (stale cache)", len(rooms))
	}
	if lister.calls != 1 {
		t.Errorf("lister calls = %d, want 1", lister.calls)
	}
}

func TestRoomDirectoryRetriesAfterFailure(t *testing.T) {
	lister := &fakeRoomLister{err: errors.New("boom")}
	dir := &RoomDirectory{Source: lister}
	ctx := context.Background()

	if _, err := dir.Rooms(ctx); err == nil {
		t.Fatal("expected error from failed fetch")
	}
	lister.err = nil
	lister.rooms = []joanapi.Room{{ID: "r1", Name: "Birch"}}
	rooms, err := dir.Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms after recovery: %v", err)
	}
	if len(rooms) != 1 {
		t.Errorf("len(rooms) = %d, want 1", len(rooms))
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2 (failure does not poison cache)", lister.calls)
	}
}
