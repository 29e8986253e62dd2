package domain

import "errors"

type State string

const (
	StateAwaitingEmail  State = "awaiting_email"
	StateEmailConfirmed State = "email_confirmed"
	StateConfirmed      State = "confirmed"
	StateDeleted        State = "deleted"
)

type Event string

const (
	EventConfirmEmail Event = "confirm_email"
	EventAdminConfirm Event = "admin_confirm"
	EventDelete       Event = "delete"
)

var ErrInvalidTransition = errors.New("invalid transition")

// transitions is the full state machine: state x event -> next state.
// ConfirmEmail on an already email-confirmed reservation stays in place;
// the caller treats that as a no-op so the calendar is never booked twice.
// Delete is reachable from every non-terminal state.
var transitions = map[State]map[Event]State{
	StateAwaitingEmail: {
		EventConfirmEmail: StateEmailConfirmed,
		EventDelete:       StateDeleted,
	},
	StateEmailConfirmed: {
		EventConfirmEmail: StateEmailConfirmed,
		EventAdminConfirm: StateConfirmed,
		EventDelete:       StateDeleted,
	},
	StateConfirmed: {
		EventDelete: StateDeleted,
	},
}

// Next returns the state reached by applying event to state, or
// ErrInvalidTransition when the machine does not allow it.
func Next(state State, event Event) (State, error) {
	allowed, ok := transitions[state]
	if !ok {
		return "", ErrInvalidTransition
	}
	next, ok := allowed[event]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}
