package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event is one check-out/check-in occurrence for a vehicle.
// CheckInAt is nil while the vehicle is still away. Legacy journal rows may
// have either or both times missing; such events are never open.
type Event struct {
	ID         uuid.UUID
	CheckOutAt *time.Time
	CheckInAt  *time.Time
}

// IsOpen reports whether the vehicle left and has not come back yet.
func (e Event) IsOpen() bool {
	return e.CheckOutAt != nil && e.CheckInAt == nil
}

// EventState is the state of the last event of a LogSequence.
type EventState string

const (
	// StateNone means no event has been recorded.
	StateNone EventState = "none"
	// StateOpen means the last event has a check-out but no check-in.
	StateOpen EventState = "open"
	// StateClosed means the last event is complete.
	StateClosed EventState = "closed"
)

// Status is the presence of a vehicle derived from its last event.
// Since is nil when nothing has been recorded, or when the relevant
// timestamp is missing from a legacy row.
type Status struct {
	Present bool
	Since   *time.Time
}

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:fleet-journal:event"))

// EventID derives the id of a vehicle's event from its check-out time,
// truncated to the second, and occurrence, the number of earlier events of
// the same vehicle with that check-out time. Stores that keep no ids get the
// same id back on every load.
func EventID(vehicle VehicleID, checkOut *time.Time, occurrence int) uuid.UUID {
	out := "-"
	if checkOut != nil {
		out = checkOut.UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	name := string(vehicle) + "\x00" + out + "\x00" + strconv.Itoa(occurrence)
	return uuid.NewSHA1(eventNamespace, []byte(name))
}

func timePtr(t time.Time) *time.Time { return &t }
