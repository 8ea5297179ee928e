package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionLinearFlowHappyPath(t *testing.T) {
	s := StateIdle
	steps := []struct {
		event Event
		want  State
	}{
		{EventStart, StatePrompting},
		{EventPrompted, StateAwaiting},
		{EventAccepted, StatePrompting},
		{EventPrompted, StateAwaiting},
		{EventCompleted, StateConfirming},
		{EventAffirmed, StateExecuting},
		{EventExecuted, StateTerminal},
		{EventReset, StateIdle},
	}

	for _, step := range steps {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next, "event %s", step.event)
		s = next
	}
}

func TestTransitionCommandLoopHappyPath(t *testing.T) {
	s := StateIdle
	steps := []struct {
		event Event
		want  State
	}{
		{EventListen, StateListening},
		{EventUnmatched, StateListening},
		{EventMatched, StateExecuting},
		{EventDictate, StateFieldInput},
		{EventDictated, StateExecuting},
		{EventDispatched, StateListening},
		{EventPause, StatePaused},
		{EventResume, StateListening},
		{EventStop, StateTerminal},
	}

	for _, step := range steps {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next, "event %s", step.event)
		s = next
	}
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{
		StateIdle, StatePrompting, StateAwaiting, StateConfirming, StateExecuting,
		StateTerminal, StateListening, StateFieldInput, StatePaused, StateError,
	}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionMatrix(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "validation failure re-prompts", state: StateAwaiting, event: EventRejected, want: StatePrompting},
		{name: "skip confirmation", state: StateAwaiting, event: EventCommit, want: StateExecuting},
		{name: "escape ends flow", state: StateAwaiting, event: EventEscape, want: StateTerminal},
		{name: "negative restarts", state: StateConfirming, event: EventDenied, want: StatePrompting},
		{name: "correction re-enters", state: StateConfirming, event: EventCorrected, want: StatePrompting},
		{name: "unclear re-asks", state: StateConfirming, event: EventUnclear, want: StateConfirming},
		{name: "execute correction", state: StateExecuting, event: EventCorrected, want: StatePrompting},
		{name: "error reset", state: StateError, event: EventReset, want: StateIdle},
		{name: "idle prompted invalid", state: StateIdle, event: EventPrompted, want: StateIdle, wantErr: true},
		{name: "prompting accepted invalid", state: StatePrompting, event: EventAccepted, want: StatePrompting, wantErr: true},
		{name: "awaiting affirmed invalid", state: StateAwaiting, event: EventAffirmed, want: StateAwaiting, wantErr: true},
		{name: "confirming start invalid", state: StateConfirming, event: EventStart, want: StateConfirming, wantErr: true},
		{name: "listening prompted invalid", state: StateListening, event: EventPrompted, want: StateListening, wantErr: true},
		{name: "paused matched invalid", state: StatePaused, event: EventMatched, want: StatePaused, wantErr: true},
		{name: "field input matched invalid", state: StateFieldInput, event: EventMatched, want: StateFieldInput, wantErr: true},
		{name: "terminal start invalid", state: StateTerminal, event: EventStart, want: StateTerminal, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
