// Package fsm defines the gesture recognition state machine transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	// StateIdle is the rest state: no key held, no tap pending.
	StateIdle State = "idle"
	// StateTapArmed means one qualifying tap was seen and a second tap
	// within the double-tap window would start a muted recording.
	StateTapArmed State = "tap_armed"
	// StateHoldArmed means the key is held and the hold timer is pending.
	StateHoldArmed State = "hold_armed"
	// StateRecording means a capture session is active.
	StateRecording State = "recording"
)

const (
	EventPress            Event = "press"
	EventHoldElapsed      Event = "hold_elapsed"
	EventReleaseTapFirst  Event = "release_tap_first"
	EventReleaseTapSecond Event = "release_tap_second"
	EventReleaseStop      Event = "release_stop"
	EventReleaseNoise     Event = "release_noise"
	EventReleaseNoiseTap  Event = "release_noise_tap"
	EventReleaseLong      Event = "release_long"
	EventToggleStart      Event = "toggle_start"
	EventToggleStop       Event = "toggle_stop"
	EventReset            Event = "reset"
)

// Transition applies one event to the current state. Events arriving in a
// state with no matching edge return the unchanged state and an error;
// callers drop the event (stale timer fires take this path).
func Transition(current State, event Event) (State, error) {
	if event == EventReset {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventPress:
			return StateHoldArmed, nil
		case EventToggleStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTapArmed:
		switch event {
		case EventPress:
			return StateHoldArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateHoldArmed:
		switch event {
		case EventHoldElapsed:
			return StateRecording, nil
		case EventReleaseTapFirst:
			return StateTapArmed, nil
		case EventReleaseTapSecond:
			return StateRecording, nil
		case EventReleaseNoise:
			return StateIdle, nil
		case EventReleaseNoiseTap:
			return StateTapArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventPress:
			return StateRecording, nil
		case EventReleaseStop:
			return StateIdle, nil
		case EventReleaseLong:
			return StateRecording, nil
		case EventToggleStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
