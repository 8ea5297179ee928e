package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/LokeshkumarVD/Voice-email-system/internal/fsm"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
)

// LoopConfig describes one command page.
type LoopConfig struct {
	Name     string
	Greeting string
	Commands CommandTable
	// Fallback is spoken when no command matches.
	Fallback string

	PausePhrases  []string
	ResumePhrases []string
	// PausePattern and ResumePattern replace the phrase lists when set, e.g.
	// to only honor phrases at the start of an utterance.
	PausePattern  *regexp.Regexp
	ResumePattern *regexp.Regexp
	PauseMessage  string
	ResumeMessage string

	// CancelPhrases abort field input.
	CancelPhrases []string
	CancelMessage string
}

// Loop is a continuous listen, match, act cycle.
type Loop struct {
	logger    *slog.Logger
	speech    Speech
	indicator Indicator
	cfg       LoopConfig
	opts      Options
	retry     *rate.Limiter

	mu        sync.RWMutex
	state     fsm.State
	cancel    context.CancelFunc
	sessionID string
	failures  int
}

// NewLoop constructs a command loop with safe fallbacks.
func NewLoop(logger *slog.Logger, speech Speech, indicator Indicator, cfg LoopConfig, opts Options) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if cfg.Fallback == "" {
		cfg.Fallback = "Sorry, I didn't understand that."
	}
	if cfg.CancelMessage == "" {
		cfg.CancelMessage = "Input cancelled"
	}
	if len(cfg.CancelPhrases) == 0 {
		cfg.CancelPhrases = []string{"cancel", "nevermind", "never mind"}
	}
	opts = opts.withDefaults()
	return &Loop{
		logger:    logger,
		speech:    speech,
		indicator: indicator,
		cfg:       cfg,
		opts:      opts,
		retry:     rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
		state:     fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (l *Loop) State() fsm.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// advance applies event unless the loop was paused over IPC since the
// utterance was heard. applied is false when the utterance must be dropped.
func (l *Loop) advance(event fsm.Event) (applied bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == fsm.StatePaused {
		return false, nil
	}
	next, err := fsm.Transition(l.state, event)
	if err != nil {
		return false, err
	}
	l.state = next
	return true, nil
}

func (l *Loop) transition(event fsm.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fsm.Transition(l.state, event)
	if err != nil {
		return err
	}
	l.state = next
	return nil
}

// Run greets, then listens and dispatches commands until an action navigates
// away, ctx ends, or input closes. Recognition errors restart the listen.
func (l *Loop) Run(ctx context.Context) Result {
	result := Result{Flow: l.cfg.Name, StartedAt: time.Now()}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		result.State = l.State()
		result.Err = ErrRunning
		result.FinishedAt = time.Now()
		return result
	}
	l.state = fsm.StateIdle
	l.cancel = cancel
	l.sessionID = uuid.NewString()
	l.failures = 0
	result.SessionID = l.sessionID
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.cancel = nil
		l.mu.Unlock()
	}()

	logger := l.logger.With("session_id", result.SessionID, "page", l.cfg.Name)
	finish := func(err error) Result {
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			// Stopped through Handle.
			_ = l.transition(fsm.EventStop)
		default:
			logger.Error("command loop failed", "error", err.Error(), "state", string(l.State()))
			_ = l.transition(fsm.EventFail)
			result.Err = err
		}
		result.State = l.State()
		result.FinishedAt = time.Now()
		return result
	}

	if err := l.transition(fsm.EventListen); err != nil {
		return finish(err)
	}
	logger.Info("command loop started")
	if err := l.speech.Speak(runCtx, l.cfg.Greeting); err != nil {
		return finish(err)
	}

	for {
		heard, err := l.listen(runCtx, 0, false)
		if err != nil {
			if runCtx.Err() != nil {
				return finish(runCtx.Err())
			}
			if errors.Is(err, speech.ErrClosed) {
				return finish(err)
			}
			if !speech.IsRecognitionFailure(err) {
				logger.Warn("listen failed; restarting", "error", err.Error())
			}
			if err := l.retry.Wait(runCtx); err != nil {
				return finish(err)
			}
			continue
		}

		if l.State() == fsm.StatePaused {
			if saysAny(heard, l.cfg.ResumePattern, l.cfg.ResumePhrases) {
				if err := l.resume(runCtx); err != nil {
					return finish(err)
				}
			}
			continue
		}

		l.indicator.ShowHeard(runCtx, heard)
		if saysAny(heard, l.cfg.PausePattern, l.cfg.PausePhrases) {
			if err := l.pause(runCtx); err != nil {
				return finish(err)
			}
			continue
		}

		cmd, ok := l.cfg.Commands.Match(heard)
		if !ok {
			applied, err := l.advance(fsm.EventUnmatched)
			if err != nil {
				return finish(err)
			}
			if !applied {
				continue
			}
			logger.Debug("no command matched")
			l.indicator.CueRejected(runCtx)
			if err := l.speech.Speak(runCtx, l.cfg.Fallback); err != nil {
				return finish(err)
			}
			continue
		}

		applied, err := l.advance(fsm.EventMatched)
		if err != nil {
			return finish(err)
		}
		if !applied {
			logger.Debug("paused before dispatch", "command", cmd.Name)
			continue
		}
		logger.Info("command matched", "command", cmd.Name)

		outcome, err := l.dispatch(runCtx, cmd, heard)
		if err != nil {
			if runCtx.Err() != nil {
				return finish(runCtx.Err())
			}
			if errors.Is(err, speech.ErrClosed) || errors.Is(err, ErrRecognitionExhausted) {
				return finish(err)
			}
			logger.Error("command failed", "command", cmd.Name, "error", err.Error())
			l.indicator.ShowError(runCtx, err.Error())
			outcome = Outcome{}
		}

		if err := l.speech.Speak(runCtx, outcome.Message); err != nil {
			return finish(err)
		}
		if outcome.Next != "" {
			if err := l.transition(fsm.EventExecuted); err != nil {
				return finish(err)
			}
			logger.Info("command loop navigating", "next", string(outcome.Next))
			result.Outcome = outcome
			return finish(nil)
		}
		if err := l.transition(fsm.EventDispatched); err != nil {
			return finish(err)
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, cmd Command, transcript string) (Outcome, error) {
	if cmd.Action == nil {
		return Outcome{}, nil
	}
	return cmd.Action(ctx, l, transcript)
}

func (l *Loop) pause(ctx context.Context) error {
	applied, err := l.advance(fsm.EventPause)
	if err != nil || !applied {
		return err
	}
	l.indicator.ShowFeedback(ctx, "Voice: Paused")
	return l.speech.Speak(ctx, l.cfg.PauseMessage)
}

func (l *Loop) resume(ctx context.Context) error {
	if err := l.transition(fsm.EventResume); err != nil {
		return err
	}
	l.indicator.ShowFeedback(ctx, "Voice: Listening")
	return l.speech.Speak(ctx, l.cfg.ResumeMessage)
}

// saysAny matches pattern against the transcript when set, otherwise any phrase.
func saysAny(transcript string, pattern *regexp.Regexp, phrases []string) bool {
	if pattern != nil {
		return pattern.MatchString(strings.TrimSpace(transcript))
	}
	return spoken.ContainsAny(transcript, phrases...)
}

// Say speaks text from inside an action.
func (l *Loop) Say(ctx context.Context, text string) error {
	return l.speech.Speak(ctx, text)
}

// Feedback shows a status line without speaking it.
func (l *Loop) Feedback(ctx context.Context, text string) {
	l.indicator.ShowFeedback(ctx, text)
}

// Dictate suspends command matching and collects one field. ok is false when
// the user cancelled.
func (l *Loop) Dictate(ctx context.Context, field Step) (value string, ok bool, err error) {
	if err := l.transition(fsm.EventDictate); err != nil {
		return "", false, err
	}
	defer func() {
		if terr := l.transition(fsm.EventDictated); terr != nil && err == nil {
			err = terr
		}
	}()

	if err := l.speech.Speak(ctx, field.Prompt); err != nil {
		return "", false, err
	}

	for {
		heard, err := l.listen(ctx, field.Timeout, true)
		if err != nil {
			if !speech.IsRecognitionFailure(err) {
				return "", false, err
			}
			if err := l.speech.Speak(ctx, firstNonEmpty(field.NoInput, l.opts.Messages.NoInput)); err != nil {
				return "", false, err
			}
			if err := l.retry.Wait(ctx); err != nil {
				return "", false, err
			}
			continue
		}

		if spoken.ContainsAny(heard, l.cfg.CancelPhrases...) {
			l.indicator.ShowFeedback(ctx, l.cfg.CancelMessage)
			if err := l.speech.Speak(ctx, l.cfg.CancelMessage); err != nil {
				return "", false, err
			}
			return "", false, nil
		}

		value := field.normalize(heard)
		l.indicator.ShowHeard(ctx, field.display(value))
		if field.Validate != nil && !field.Validate(value) {
			l.indicator.CueRejected(ctx)
			if err := l.speech.Speak(ctx, field.Invalid); err != nil {
				return "", false, err
			}
			continue
		}

		l.indicator.CueAccepted(ctx)
		return value, true, nil
	}
}

// Confirm asks a yes/no question. Unclear replies re-ask.
func (l *Loop) Confirm(ctx context.Context, question string, vocabulary spoken.Vocabulary) (bool, error) {
	if len(vocabulary.Affirmative) == 0 && len(vocabulary.Negative) == 0 {
		vocabulary = l.opts.Vocabulary
	}
	if err := l.speech.Speak(ctx, question); err != nil {
		return false, err
	}

	for {
		heard, err := l.listen(ctx, 0, true)
		if err != nil {
			if !speech.IsRecognitionFailure(err) {
				return false, err
			}
			if err := l.speech.Speak(ctx, l.opts.Messages.NoInput); err != nil {
				return false, err
			}
			if err := l.retry.Wait(ctx); err != nil {
				return false, err
			}
			continue
		}

		l.indicator.ShowHeard(ctx, heard)
		switch vocabulary.Classify(heard) {
		case spoken.Affirmative:
			return true, nil
		case spoken.Negative:
			return false, nil
		default:
			if err := l.speech.Speak(ctx, l.opts.Messages.Unclear); err != nil {
				return false, err
			}
		}
	}
}

// listen captures one utterance. Idle command listens are not counted against
// MaxFailures; field input and confirmations are.
func (l *Loop) listen(ctx context.Context, timeout time.Duration, counted bool) (string, error) {
	result, err := l.speech.Listen(ctx, timeout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if counted && speech.IsRecognitionFailure(err) {
			l.failures++
			if l.opts.MaxFailures > 0 && l.failures >= l.opts.MaxFailures {
				return "", fmt.Errorf("%w: %v", ErrRecognitionExhausted, err)
			}
		}
		return "", err
	}
	l.failures = 0
	return result.Transcript, nil
}

// Handle serves IPC commands while the loop runs.
func (l *Loop) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	l.mu.RLock()
	state, cancel := l.state, l.cancel
	l.mu.RUnlock()

	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(state), Page: l.cfg.Name, Message: "status"}
	case ipc.CommandStop:
		if cancel == nil {
			return ipc.Response{OK: false, State: string(state), Error: "no command loop running"}
		}
		cancel()
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	case ipc.CommandPause:
		if state != fsm.StateListening {
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot pause from state %s", state)}
		}
		if err := l.transition(fsm.EventPause); err != nil {
			return ipc.Response{OK: false, State: string(state), Error: err.Error()}
		}
		l.indicator.ShowFeedback(ctx, "Voice: Paused")
		return ipc.Response{OK: true, State: string(l.State()), Message: "paused"}
	case ipc.CommandResume:
		if state != fsm.StatePaused {
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot resume from state %s", state)}
		}
		if err := l.transition(fsm.EventResume); err != nil {
			return ipc.Response{OK: false, State: string(state), Error: err.Error()}
		}
		l.indicator.ShowFeedback(ctx, "Voice: Listening")
		return ipc.Response{OK: true, State: string(l.State()), Message: "resumed"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}
