package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StatePrompting  State = "prompting"
	StateAwaiting   State = "awaiting_response"
	StateConfirming State = "confirming"
	StateExecuting  State = "executing"
	StateTerminal   State = "terminal"
	StateListening  State = "listening"
	StateFieldInput State = "field_input"
	StatePaused     State = "paused"
	StateError      State = "error"
)

const (
	EventStart      Event = "start"
	EventPrompted   Event = "prompted"
	EventRejected   Event = "rejected"
	EventAccepted   Event = "accepted"
	EventCompleted  Event = "completed"
	EventCommit     Event = "commit"
	EventEscape     Event = "escape"
	EventAffirmed   Event = "affirmed"
	EventDenied     Event = "denied"
	EventCorrected  Event = "corrected"
	EventUnclear    Event = "unclear"
	EventExecuted   Event = "executed"
	EventListen     Event = "listen"
	EventMatched    Event = "matched"
	EventUnmatched  Event = "unmatched"
	EventDispatched Event = "dispatched"
	EventDictate    Event = "dictate"
	EventDictated   Event = "dictated"
	EventPause      Event = "pause"
	EventResume     Event = "resume"
	EventStop       Event = "stop"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

// Transition returns the state reached by applying event to current.
//
// Linear flows walk idle -> prompting -> awaiting_response (per step) ->
// confirming -> executing -> terminal. Command pages walk idle ->
// listening -> executing -> listening until stopped.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StatePrompting, nil
		case EventListen:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePrompting:
		switch event {
		case EventPrompted:
			return StateAwaiting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaiting:
		switch event {
		case EventRejected, EventAccepted:
			return StatePrompting, nil
		case EventCompleted:
			return StateConfirming, nil
		case EventCommit:
			return StateExecuting, nil
		case EventEscape:
			return StateTerminal, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConfirming:
		switch event {
		case EventAffirmed:
			return StateExecuting, nil
		case EventDenied, EventCorrected:
			return StatePrompting, nil
		case EventUnclear:
			return StateConfirming, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateExecuting:
		switch event {
		case EventExecuted:
			return StateTerminal, nil
		case EventCorrected:
			return StatePrompting, nil
		case EventDispatched:
			return StateListening, nil
		case EventDictate:
			return StateFieldInput, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventMatched:
			return StateExecuting, nil
		case EventUnmatched:
			return StateListening, nil
		case EventPause:
			return StatePaused, nil
		case EventStop:
			return StateTerminal, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFieldInput:
		switch event {
		case EventDictated:
			return StateExecuting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventResume:
			return StateListening, nil
		case EventStop:
			return StateTerminal, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTerminal, StateError:
		switch event {
		case EventReset:
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
