package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// Events of the per-vehicle state machine.
const (
	eventCheckOut = "check_out"
	eventCheckIn  = "check_in"
)

// newEventMachine returns the state machine of a vehicle's last event,
// starting from its current state.
//
//	none   --check_out--> open
//	closed --check_out--> open
//	open   --check_out--> open   (previous event closed first)
//	open   --check_in---> closed
func newEventMachine(initial domain.EventState, log *slog.Logger, id domain.VehicleID) *fsm.FSM {
	none, open, closed := string(domain.StateNone), string(domain.StateOpen), string(domain.StateClosed)

	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: eventCheckOut, Src: []string{none, open, closed}, Dst: open},
			{Name: eventCheckIn, Src: []string{open}, Dst: closed},
		},
		fsm.Callbacks{
			"before_" + eventCheckOut: func(ctx context.Context, e *fsm.Event) {
				if e.Src == open {
					log.InfoContext(ctx, "open event force-closed by new check-out", "vehicle_id", id)
				}
			},
			"after_event": func(ctx context.Context, e *fsm.Event) {
				log.DebugContext(ctx, "vehicle transition",
					"vehicle_id", id, "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}

// fire triggers event on m. It reports false, without error, when the event
// is not allowed in the current state.
func fire(ctx context.Context, m *fsm.FSM, event string) (bool, error) {
	err := m.Event(ctx, event)

	var (
		same    fsm.NoTransitionError
		invalid fsm.InvalidEventError
	)
	switch {
	case err == nil, errors.As(err, &same):
		return true, nil
	case errors.As(err, &invalid):
		return false, nil
	default:
		return false, err
	}
}
