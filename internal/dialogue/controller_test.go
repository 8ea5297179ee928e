package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/LokeshkumarVD/Voice-email-system/internal/fsm"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
	"github.com/stretchr/testify/require"
)

func accountFlow(executed *[]map[string]string) Flow {
	return Flow{
		Name:     "account",
		Greeting: "Let's create your account.",
		Steps: []Step{
			{ID: "name", Prompt: "What is your name?"},
			{ID: "username", Prompt: "Choose a username.", Normalize: spoken.Compact, Validate: validate.Username, Invalid: "Invalid username."},
			{ID: "password", Prompt: "Choose a password.", Normalize: spoken.Compact, Validate: validate.Password, Invalid: "Weak password.", Mask: true},
		},
		Summary: func(v *Values) string {
			return "Your name is " + v.Value("name") + ". Do you want to continue?"
		},
		Execute: func(_ context.Context, v *Values) (Outcome, error) {
			snapshot := map[string]string{}
			for _, f := range v.Fields() {
				snapshot[f.ID] = f.Value
			}
			*executed = append(*executed, snapshot)
			return Outcome{Message: "Account created.", Next: "dashboard"}, nil
		},
	}
}

func TestRunCollectsValidatesConfirmsAndExecutes(t *testing.T) {
	var executed []map[string]string
	script := newScript(
		heard("John"),
		heard("john dash doe"),
		heard("john underscore doe"),
		heard("abc 1 2 3 exclamation x"),
		heard("yes"),
	)
	indicator := &fakeIndicator{}
	ctrl := NewController(nil, script, indicator, testOptions())

	result := ctrl.Run(context.Background(), accountFlow(&executed))
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateTerminal, result.State)
	require.Equal(t, Page("dashboard"), result.Outcome.Next)
	require.NotEmpty(t, result.SessionID)
	require.False(t, result.Escaped)

	require.Len(t, executed, 1)
	require.Equal(t, map[string]string{"name": "John", "username": "john_doe", "password": "abc123!x"}, executed[0])

	require.Equal(t, []Field{{ID: "name", Value: "John"}, {ID: "username", Value: "john_doe"}, {ID: "password", Value: "********"}}, result.Values)
	require.Equal(t, 1, script.count("Invalid username."))
	require.Equal(t, 2, script.count("Choose a username."))
	require.Equal(t, 1, script.count("Account created."))
	require.Contains(t, indicator.heard, "********")
	require.NotContains(t, indicator.heard, "abc123!x")
	require.Equal(t, int32(1), indicator.rejected.Load())
}

func TestRunNegativeConfirmationRestartsWithClearedValues(t *testing.T) {
	var executed []map[string]string
	script := newScript(
		heard("Ann"), heard("ann"), heard("abc123!x"), heard("no"),
		heard("Bob"), heard("bob"), heard("xyz789#q"), heard("yes"),
	)
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), accountFlow(&executed))
	require.NoError(t, result.Err)
	require.Len(t, executed, 1)
	require.Equal(t, map[string]string{"name": "Bob", "username": "bob", "password": "xyz789#q"}, executed[0])
	require.Equal(t, 1, script.count("Okay, let's start again."))
	require.Equal(t, 2, script.count("What is your name?"))
}

func TestRunUnclearConfirmationReasksWithoutGuessing(t *testing.T) {
	var executed []map[string]string
	script := newScript(heard("Ann"), heard("ann"), heard("abc123!x"), heard("maybe"), heard("yes no"), heard("yes"))
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), accountFlow(&executed))
	require.NoError(t, result.Err)
	require.Len(t, executed, 1)
	require.Equal(t, 2, script.count(DefaultMessages.Unclear))
	require.Equal(t, 1, script.count("Your name is Ann."))
}

func passwordFlow(executed *int) Flow {
	return Flow{
		Name: "reset",
		Steps: []Step{
			{ID: "email", Prompt: "Say your email.", Normalize: spoken.Email, Validate: validate.Email, Invalid: "Invalid email."},
			{ID: "password", Prompt: "Say a new password.", Normalize: spoken.Compact, Mask: true},
			{ID: "confirm", Prompt: "Repeat the password.", Normalize: spoken.Compact, Mask: true},
		},
		SkipConfirm: true,
		Check: func(v *Values) error {
			if v.Value("password") != v.Value("confirm") {
				return &Correction{StepID: "password", Message: "Passwords do not match."}
			}
			return nil
		},
		Execute: func(context.Context, *Values) (Outcome, error) {
			*executed++
			return Outcome{Message: "Done.", Next: "login"}, nil
		},
	}
}

func TestRunCorrectionReentersAtStepKeepingEarlierValues(t *testing.T) {
	executed := 0
	script := newScript(
		heard("jo at gmail"),
		heard("secret 1"), heard("secret 2"),
		heard("secret 1"), heard("secret 1"),
	)
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), passwordFlow(&executed))
	require.NoError(t, result.Err)
	require.Equal(t, 1, executed)
	require.Equal(t, 1, script.count("Passwords do not match."))
	require.Equal(t, 1, script.count("Say your email."))
	require.Equal(t, 2, script.count("Say a new password."))
	require.Equal(t, "jo@gmail.com", result.Values[0].Value)
	require.Equal(t, Page("login"), result.Outcome.Next)
}

func TestRunExecuteCorrectionReentersFlow(t *testing.T) {
	attempts := 0
	flow := Flow{
		Name:        "login",
		Steps:       []Step{{ID: "user", Prompt: "User?"}, {ID: "pin", Prompt: "Pin?"}},
		SkipConfirm: true,
		Execute: func(_ context.Context, v *Values) (Outcome, error) {
			attempts++
			if v.Value("user") != "ann" {
				return Outcome{}, &Correction{StepID: "user", Message: "Unknown user."}
			}
			return Outcome{Message: "Welcome."}, nil
		},
	}
	script := newScript(heard("bob"), heard("1"), heard("ann"), heard("2"))
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.NoError(t, result.Err)
	require.Equal(t, 2, attempts)
	require.Equal(t, []Field{{ID: "user", Value: "ann"}, {ID: "pin", Value: "2"}}, result.Values)
	require.Equal(t, 1, script.count("Unknown user."))
}

func TestRunExecuteFailureEndsInError(t *testing.T) {
	flow := Flow{
		Name:        "boom",
		Steps:       []Step{{ID: "x", Prompt: "X?"}},
		SkipConfirm: true,
		Execute: func(context.Context, *Values) (Outcome, error) {
			return Outcome{}, errors.New("store offline")
		},
	}
	ctrl := NewController(nil, newScript(heard("x")), nil, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.EqualError(t, result.Err, "store offline")
	require.Equal(t, fsm.StateError, result.State)
}

func TestRunRecognitionFailureReprompts(t *testing.T) {
	flow := Flow{
		Name:        "choice",
		Steps:       []Step{{ID: "choice", Prompt: "Sign up or sign in?", NoInput: "I didn't hear you."}},
		SkipConfirm: true,
	}
	script := newScript(failed(speech.ErrTimeout), failed(&speech.RecognitionError{Reason: "network"}), heard("sign up"))
	indicator := &fakeIndicator{}
	ctrl := NewController(nil, script, indicator, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.NoError(t, result.Err)
	require.Equal(t, 2, script.count("I didn't hear you."))
	require.Equal(t, 3, script.count("Sign up or sign in?"))
	require.Equal(t, int32(2), indicator.errors.Load())
}

func TestRunRecognitionFailuresExhaust(t *testing.T) {
	flow := Flow{Name: "choice", Steps: []Step{{ID: "choice", Prompt: "Choose."}}}
	script := newScript(failed(speech.ErrNoSpeech), failed(speech.ErrNoSpeech), failed(speech.ErrNoSpeech))
	opts := testOptions()
	opts.MaxFailures = 3
	ctrl := NewController(nil, script, nil, opts)

	result := ctrl.Run(context.Background(), flow)
	require.ErrorIs(t, result.Err, ErrRecognitionExhausted)
	require.Equal(t, fsm.StateError, result.State)
	require.Equal(t, 3, script.listens)
}

func TestRunUnboundedRetriesWhenMaxFailuresZero(t *testing.T) {
	flow := Flow{Name: "choice", Steps: []Step{{ID: "choice", Prompt: "Choose."}}, SkipConfirm: true}
	turns := make([]turn, 0, 21)
	for range 20 {
		turns = append(turns, failed(speech.ErrNoSpeech))
	}
	turns = append(turns, heard("ok"))
	opts := testOptions()
	opts.MaxFailures = 0
	ctrl := NewController(nil, newScript(turns...), nil, opts)

	result := ctrl.Run(context.Background(), flow)
	require.NoError(t, result.Err)
	require.Equal(t, "ok", result.Values[0].Value)
}

func TestRunEscapeEndsFlowEarly(t *testing.T) {
	flow := Flow{
		Name: "login",
		Steps: []Step{{
			ID:     "email",
			Prompt: "Say your email.",
			Escape: func(transcript string) (Outcome, bool) {
				if spoken.Contains(transcript, "forgot password") {
					return Outcome{Message: "You selected forgot password.", Next: "forgot"}, true
				}
				return Outcome{}, false
			},
		}},
	}
	script := newScript(heard("I forgot password"))
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.NoError(t, result.Err)
	require.True(t, result.Escaped)
	require.Equal(t, Page("forgot"), result.Outcome.Next)
	require.Equal(t, fsm.StateTerminal, result.State)
	require.Empty(t, result.Values)
}

func TestRunDefaultSummaryHidesMaskedValues(t *testing.T) {
	flow := Flow{
		Name:  "pair",
		Steps: []Step{{ID: "user", Prompt: "User?"}, {ID: "secret", Prompt: "Secret?", Mask: true}},
	}
	script := newScript(heard("ann"), heard("hunter2"), heard("yes"))
	ctrl := NewController(nil, script, nil, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.NoError(t, result.Err)
	require.Equal(t, 1, script.count("You said user ann, secret hidden. Is this correct? Please say yes or no."))
}

func TestRunEmptyFlow(t *testing.T) {
	ctrl := NewController(nil, newScript(), nil, testOptions())

	result := ctrl.Run(context.Background(), Flow{Name: "empty"})
	require.ErrorIs(t, result.Err, ErrEmptyFlow)
	require.NotZero(t, result.FinishedAt)
}

func TestRunClosedInputFails(t *testing.T) {
	flow := Flow{Name: "x", Steps: []Step{{ID: "x", Prompt: "X?"}}}
	ctrl := NewController(nil, newScript(), nil, testOptions())

	result := ctrl.Run(context.Background(), flow)
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, fsm.StateError, result.State)

	// A finished controller can run again.
	result = ctrl.Run(context.Background(), Flow{Name: "y", Steps: []Step{{ID: "y"}}, SkipConfirm: true})
	require.ErrorIs(t, result.Err, speech.ErrClosed)
}

func TestHandleStatusStopAndUnknown(t *testing.T) {
	script := newScript()
	script.block = true
	ctrl := NewController(nil, script, nil, testOptions())

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "no dialogue running")

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(context.Background(), Flow{Name: "signup", Steps: []Step{{ID: "first", Prompt: "First name?"}}})
	}()

	waitForState(t, ctrl, fsm.StateAwaiting)
	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, "signup", status.Page)
	require.Equal(t, "first", status.Step)
	require.Equal(t, string(fsm.StateAwaiting), status.State)

	pause := ctrl.Handle(context.Background(), ipc.Request{Command: "pause"})
	require.False(t, pause.OK)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")

	stop := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, stop.OK)

	result := <-resultCh
	require.ErrorIs(t, result.Err, context.Canceled)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	script := newScript()
	script.block = true
	ctrl := NewController(nil, script, nil, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx, Flow{Name: "a", Steps: []Step{{ID: "a"}}})
	}()
	waitForState(t, ctrl, fsm.StateAwaiting)

	second := ctrl.Run(ctx, Flow{Name: "b", Steps: []Step{{ID: "b"}}})
	require.ErrorIs(t, second.Err, ErrRunning)

	cancel()
	require.ErrorIs(t, (<-resultCh).Err, context.Canceled)
}
