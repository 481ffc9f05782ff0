// Package schedule turns reservation listings into the display blocks the
// chat front end shows, and maintains the event→room index the cancel flow
// looks up later.
package schedule

import (
	"strings"
	"time"

	"github.com/factorydtw/roomboard/joanapi"
)

// BlockType distinguishes the units of rendered agenda output.
type BlockType string

const (
	BlockHeader  BlockType = "header"
	BlockEvent   BlockType = "event"
	BlockDivider BlockType = "divider"
)

// DisplayBlock is one unit of rendered output. CancelEventID is set only on
// event blocks the requesting user may cancel.
type DisplayBlock struct {
	Type          BlockType `json:"type"`
	Text          string    `json:"text,omitempty"`
	CancelEventID string    `json:"cancel_event_id,omitempty"`
}

// Options configure rendering. GenericSummary suppresses the placeholder
// title Joan puts on on-device bookings; DeskOwnerPrefix suppresses organizer
// names belonging to the shared desk account.
type Options struct {
	GenericSummary  string
	DeskOwnerPrefix string
	Location        *time.Location
	Now             func() time.Time // test hook; defaults to time.Now
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Render builds display blocks for the given reservations. Rooms keep the
// order Joan supplied (not re-sorted); events whose end is already past are
// dropped; each room's events are followed by a divider. Every rendered event
// is recorded in idx so a later cancel interaction can find its room.
func Render(schedules []joanapi.RoomSchedule, requestingUserEmail string, idx *EventIndex, opts Options) []DisplayBlock {
	now := opts.now()
	blocks := make([]DisplayBlock, 0, len(schedules)*3)
	for _, rs := range schedules {
		blocks = append(blocks, DisplayBlock{Type: BlockHeader, Text: rs.Room.Name})
		for _, ev := range rs.Events {
			if ev.End.Before(now) {
				continue
			}
			if idx != nil {
				roomID := ev.Resource
				if roomID == "" {
					roomID = rs.Room.ID
				}
				idx.Put(ev.ID, IndexEntry{RoomID: roomID, Summary: ev.Summary})
			}
			b := DisplayBlock{Type: BlockEvent, Text: eventLabel(ev, opts)}
			if ev.Organizer.Email == requestingUserEmail {
				b.CancelEventID = ev.ID
			}
			blocks = append(blocks, b)
		}
		blocks = append(blocks, DisplayBlock{Type: BlockDivider})
	}
	return blocks
}

func eventLabel(ev joanapi.Event, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	when := ev.Start.In(loc).Format("Mon 1/2 3:04 PM") + " - " + ev.End.In(loc).Format("3:04 PM")

	summary := ev.Summary
	if summary == opts.GenericSummary {
		summary = ""
	}
	who := ev.Organizer.DisplayName
	if opts.DeskOwnerPrefix != "" && strings.HasPrefix(who, opts.DeskOwnerPrefix) {
		who = ""
	}

	label := "⏰ " + when
	if summary != "" {
		label += "  📌 " + summary
	}
	if who != "" {
		label += "  🙂 " + who
	}
	return label
}
