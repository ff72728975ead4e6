package domain

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// ClearPolicy selects what LogSequence.Clear keeps.
type ClearPolicy string

const (
	// ClearKeepOpen drops every event except an in-progress one, so a vehicle
	// that is away stays away after a clear.
	ClearKeepOpen ClearPolicy = "keep-open"
	// ClearAll drops every event unconditionally.
	ClearAll ClearPolicy = "all"
)

// ParseClearPolicy maps the textual policy name to a ClearPolicy.
// An empty string selects ClearKeepOpen.
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch ClearPolicy(s) {
	case "", ClearKeepOpen:
		return ClearKeepOpen, nil
	case ClearAll:
		return ClearAll, nil
	default:
		return "", fmt.Errorf("%w: unknown clear policy %q", ErrValidation, s)
	}
}

// LogSequence is the ordered, append-only history of one vehicle.
// At most one event is open and, if so, it is the last one.
// The zero value is an empty sequence ready to use; it has no vehicle and
// gives new events random ids. Sequences from Journal.Sequence derive ids
// with EventID.
type LogSequence struct {
	vehicle VehicleID
	events  []Event
}

// CheckOut records a departure at t. A still-open previous event is closed
// at t first, so a forgotten check-in never swallows the new departure.
// The sequence always grows by exactly one event.
func (s *LogSequence) CheckOut(t time.Time) {
	if last := s.last(); last != nil && last.IsOpen() {
		last.CheckInAt = timePtr(t)
	}
	at := timePtr(t)
	s.events = append(s.events, Event{ID: s.newID(at), CheckOutAt: at})
}

// CheckIn closes the open event at t. Checking in a vehicle that is already
// present is a no-op.
func (s *LogSequence) CheckIn(t time.Time) {
	if last := s.last(); last != nil && last.IsOpen() {
		last.CheckInAt = timePtr(t)
	}
}

// ClearCheckedIn drops every closed event, keeping the open one if any.
func (s *LogSequence) ClearCheckedIn() {
	kept := s.events[:0]
	for _, e := range s.events {
		if e.IsOpen() {
			kept = append(kept, e)
		}
	}
	clear(s.events[len(kept):])
	s.events = kept
}

// Clear drops the history according to policy.
func (s *LogSequence) Clear(policy ClearPolicy) {
	if policy == ClearKeepOpen {
		s.ClearCheckedIn()
		return
	}
	s.events = nil
}

// replay appends an event loaded from storage. Like CheckOut, a dangling open
// event is closed at the new event's check-out time so the tail invariant
// holds after a sequential replay of legacy rows.
func (s *LogSequence) replay(e Event) {
	if last := s.last(); last != nil && last.IsOpen() && e.CheckOutAt != nil {
		last.CheckInAt = timePtr(*e.CheckOutAt)
	}
	if e.ID == uuid.Nil {
		e.ID = s.newID(e.CheckOutAt)
	}
	s.events = append(s.events, e)
}

func (s *LogSequence) newID(checkOut *time.Time) uuid.UUID {
	if s.vehicle == "" {
		return uuid.New()
	}
	occurrence := 0
	for _, e := range s.events {
		if sameSecond(e.CheckOutAt, checkOut) {
			occurrence++
		}
	}
	return EventID(s.vehicle, checkOut, occurrence)
}

func sameSecond(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// Len returns the number of recorded events.
func (s *LogSequence) Len() int { return len(s.events) }

// All iterates the events oldest first.
func (s *LogSequence) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, e := range s.events {
			if !yield(e) {
				return
			}
		}
	}
}

// Events returns a copy of the events, oldest first.
func (s *LogSequence) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// LastCheckOutAt returns the check-out time of the last event, or nil.
func (s *LogSequence) LastCheckOutAt() *time.Time {
	if last := s.last(); last != nil {
		return last.CheckOutAt
	}
	return nil
}

// LastCheckInAt returns the check-in time of the last event, or nil.
func (s *LogSequence) LastCheckInAt() *time.Time {
	if last := s.last(); last != nil {
		return last.CheckInAt
	}
	return nil
}

// Present reports whether the vehicle is on site: the sequence is empty or
// its last event is closed.
func (s *LogSequence) Present() bool {
	last := s.last()
	return last == nil || !last.IsOpen()
}

// State returns the state of the last event.
func (s *LogSequence) State() EventState {
	last := s.last()
	switch {
	case last == nil:
		return StateNone
	case last.IsOpen():
		return StateOpen
	default:
		return StateClosed
	}
}

// Status derives presence from the last event only.
func (s *LogSequence) Status() Status {
	last := s.last()
	switch {
	case last == nil:
		return Status{Present: true}
	case last.IsOpen():
		return Status{Present: false, Since: last.CheckOutAt}
	default:
		return Status{Present: true, Since: last.CheckInAt}
	}
}

func (s *LogSequence) last() *Event {
	if len(s.events) == 0 {
		return nil
	}
	return &s.events[len(s.events)-1]
}
