// Package fsm defines the speaking-flag state machine used by speech requests.
package fsm

import (
	"errors"
	"fmt"
)

// State is a speaking-flag state.
type State string

// Event drives a State change.
type Event string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
)

const (
	EventSend Event = "send"
	EventDone Event = "done"
	EventFail Event = "fail"
)

// ErrInvalidTransition marks an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition returns the state that event leads to from current, or an
// error wrapping ErrInvalidTransition when current does not accept event.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventSend:
			return StateSpeaking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSpeaking:
		switch event {
		case EventDone, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
