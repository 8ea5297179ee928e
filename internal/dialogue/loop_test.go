package dialogue

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/LokeshkumarVD/Voice-email-system/internal/fsm"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
	"github.com/stretchr/testify/require"
)

type counter map[string]int

func feedback(calls counter, name string, message string) Action {
	return func(context.Context, *Loop, string) (Outcome, error) {
		calls[name]++
		return Outcome{Message: message}, nil
	}
}

func dashboardConfig(calls counter) LoopConfig {
	return LoopConfig{
		Name:     "dashboard",
		Greeting: "Welcome. Say a command.",
		Fallback: "Sorry, I didn't understand.",
		Commands: CommandTable{
			{Name: "compose", Phrases: []string{"compose"}, Action: func(context.Context, *Loop, string) (Outcome, error) {
				calls["compose"]++
				return Outcome{Message: "Opening Compose...", Next: "compose"}, nil
			}},
			{Name: "inbox", Phrases: []string{"inbox"}, Action: feedback(calls, "inbox", "Opening Inbox...")},
			{Name: "sent", Phrases: []string{"sent"}, Action: feedback(calls, "sent", "Opening Sent...")},
		},
		PausePhrases:  []string{"stop listening"},
		ResumePhrases: []string{"start listening"},
		PauseMessage:  "Voice paused.",
		ResumeMessage: "Voice resumed.",
	}
}

func TestLoopDispatchesFirstMatchAndFallsBack(t *testing.T) {
	calls := counter{}
	script := newScript(heard("open my INBOX please"), heard("what is this"), heard("compose a note to my inbox"))
	indicator := &fakeIndicator{}
	loop := NewLoop(nil, script, indicator, dashboardConfig(calls), testOptions())

	result := loop.Run(context.Background())
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateTerminal, result.State)
	require.Equal(t, Page("compose"), result.Outcome.Next)
	require.Equal(t, counter{"inbox": 1, "compose": 1}, calls)
	require.Equal(t, 1, script.count("Sorry, I didn't understand."))
	require.Equal(t, 1, script.count("Opening Inbox..."))
	require.Equal(t, 1, script.count("Opening Compose..."))
	require.Equal(t, int32(1), indicator.rejected.Load())
}

func TestLoopUnmatchedTranscriptRunsNoAction(t *testing.T) {
	calls := counter{}
	script := newScript(heard("hello there"))
	loop := NewLoop(nil, script, nil, dashboardConfig(calls), testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Empty(t, calls)
	require.Equal(t, 1, script.count("Sorry, I didn't understand."))
}

func TestLoopPauseIgnoresCommandsUntilResumed(t *testing.T) {
	calls := counter{}
	script := newScript(
		heard("stop listening"),
		heard("inbox"),
		heard("start listening"),
		heard("inbox"),
	)
	loop := NewLoop(nil, script, nil, dashboardConfig(calls), testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, 1, calls["inbox"])
	require.Equal(t, 1, script.count("Voice paused."))
	require.Equal(t, 1, script.count("Voice resumed."))
}

func TestLoopDropsUtteranceWhenPausedOverIPCMidTurn(t *testing.T) {
	calls := counter{}
	script := newScript(
		heard("what is this"),
		heard("start listening"),
		heard("inbox"),
		heard("start listening"),
		heard("inbox"),
	)
	indicator := &fakeIndicator{}
	loop := NewLoop(nil, script, indicator, dashboardConfig(calls), testOptions())

	// pause lands between hearing and dispatch for the first two utterances
	var paused []ipc.Response
	indicator.onHeard = func(string) {
		if len(paused) < 2 {
			paused = append(paused, loop.Handle(context.Background(), ipc.Request{Command: ipc.CommandPause}))
		}
	}

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Len(t, paused, 2)
	for _, resp := range paused {
		require.True(t, resp.OK, resp.Error)
	}
	require.Equal(t, counter{"inbox": 1}, calls)
	require.Zero(t, script.count("Sorry, I didn't understand."))
	require.Equal(t, 2, script.count("Voice resumed."))
}

func TestLoopPausePatternOverridesPhrases(t *testing.T) {
	calls := counter{}
	cfg := dashboardConfig(calls)
	cfg.PausePattern = regexp.MustCompile(`(?i)^stop listening\b`)
	cfg.ResumePattern = regexp.MustCompile(`(?i)^start listening\b`)
	script := newScript(heard("inbox and stop listening"), heard("stop listening"), heard("sent"), heard("please start listening"), heard("start listening"), heard("sent"))
	loop := NewLoop(nil, script, nil, cfg, testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, counter{"inbox": 1, "sent": 1}, calls)
	require.Equal(t, 1, script.count("Voice paused."))
	require.Equal(t, 1, script.count("Voice resumed."))
}

func TestLoopSelfHealsRecognitionErrors(t *testing.T) {
	calls := counter{}
	script := newScript(
		failed(speech.ErrNoSpeech),
		failed(speech.ErrTimeout),
		failed(&speech.RecognitionError{Reason: "aborted"}),
		failed(errors.New("device hiccup")),
		heard("sent"),
	)
	opts := testOptions()
	opts.MaxFailures = 2
	loop := NewLoop(nil, script, nil, dashboardConfig(calls), opts)

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, 1, calls["sent"])
}

func TestLoopDictateSuspendsMatchingAndValidates(t *testing.T) {
	var recipient string
	var ok bool
	cfg := LoopConfig{
		Name: "compose",
		Commands: CommandTable{
			{Name: "recipient", Pattern: regexp.MustCompile(`^(add recipient|to|recipient|send to)\b`), Action: func(ctx context.Context, l *Loop, _ string) (Outcome, error) {
				var err error
				recipient, ok, err = l.Dictate(ctx, Step{
					ID:        "to",
					Prompt:    "Who is the recipient?",
					Normalize: spoken.Email,
					Validate:  validate.Email,
					Invalid:   "That doesn't appear to be a valid email address.",
				})
				if err != nil || !ok {
					return Outcome{}, err
				}
				return Outcome{Message: "Recipient set to " + recipient}, nil
			}},
			{Name: "send", Phrases: []string{"send"}, Action: feedback(counter{}, "send", "Sending.")},
		},
	}
	script := newScript(
		heard("add recipient"),
		heard("send email"),
		heard("john at gmail"),
	)
	loop := NewLoop(nil, script, nil, cfg, testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.True(t, ok)
	require.Equal(t, "john@gmail.com", recipient)
	require.Equal(t, 1, script.count("That doesn't appear to be a valid email address."))
	require.Equal(t, 0, script.count("Sending."))
	require.Equal(t, 1, script.count("Recipient set to john@gmail.com"))
}

func TestLoopDictateCancel(t *testing.T) {
	dictated := true
	cfg := LoopConfig{
		Name: "compose",
		Commands: CommandTable{
			{Name: "subject", Phrases: []string{"subject"}, Action: func(ctx context.Context, l *Loop, _ string) (Outcome, error) {
				_, ok, err := l.Dictate(ctx, Step{ID: "subject", Prompt: "What is the subject?"})
				dictated = ok
				return Outcome{}, err
			}},
		},
	}
	script := newScript(heard("subject"), heard("never mind"))
	loop := NewLoop(nil, script, nil, cfg, testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.False(t, dictated)
	require.Equal(t, 1, script.count("Input cancelled"))
}

func TestLoopConfirmReasksUnclearReplies(t *testing.T) {
	var answers []bool
	cfg := LoopConfig{
		Name: "compose",
		Commands: CommandTable{
			{Name: "discard", Phrases: []string{"discard"}, Action: func(ctx context.Context, l *Loop, _ string) (Outcome, error) {
				yes, err := l.Confirm(ctx, "Discard this draft?", spoken.Vocabulary{})
				answers = append(answers, yes)
				return Outcome{}, err
			}},
		},
	}
	script := newScript(heard("discard"), heard("hmm"), heard("yes"), heard("discard"), heard("no"))
	loop := NewLoop(nil, script, nil, cfg, testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, []bool{true, false}, answers)
	require.Equal(t, 1, script.count(DefaultMessages.Unclear))
}

func TestLoopActionErrorKeepsListening(t *testing.T) {
	calls := counter{}
	cfg := dashboardConfig(calls)
	cfg.Commands = append(CommandTable{{Name: "broken", Phrases: []string{"archive"}, Action: func(context.Context, *Loop, string) (Outcome, error) {
		return Outcome{}, errors.New("archive unavailable")
	}}}, cfg.Commands...)
	script := newScript(heard("archive"), heard("inbox"))
	indicator := &fakeIndicator{}
	loop := NewLoop(nil, script, indicator, cfg, testOptions())

	result := loop.Run(context.Background())
	require.ErrorIs(t, result.Err, speech.ErrClosed)
	require.Equal(t, 1, calls["inbox"])
	require.Equal(t, int32(1), indicator.errors.Load())
}

func TestLoopHandlePauseResumeStop(t *testing.T) {
	script := newScript()
	script.block = true
	loop := NewLoop(nil, script, nil, dashboardConfig(counter{}), testOptions())

	idlePause := loop.Handle(context.Background(), ipc.Request{Command: "pause"})
	require.False(t, idlePause.OK)
	require.Contains(t, idlePause.Error, "cannot pause from state idle")

	resultCh := make(chan Result, 1)
	go func() { resultCh <- loop.Run(context.Background()) }()
	waitForState(t, loop, fsm.StateListening)

	status := loop.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, "dashboard", status.Page)

	paused := loop.Handle(context.Background(), ipc.Request{Command: "pause"})
	require.True(t, paused.OK)
	require.Equal(t, string(fsm.StatePaused), paused.State)

	resumed := loop.Handle(context.Background(), ipc.Request{Command: "resume"})
	require.True(t, resumed.OK)
	require.Equal(t, string(fsm.StateListening), resumed.State)

	badResume := loop.Handle(context.Background(), ipc.Request{Command: "resume"})
	require.False(t, badResume.OK)

	stop := loop.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, stop.OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateTerminal, result.State)
}
