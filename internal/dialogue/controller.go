package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/LokeshkumarVD/Voice-email-system/internal/fsm"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
)

var (
	// ErrRecognitionExhausted indicates too many consecutive recognition failures.
	ErrRecognitionExhausted = errors.New("recognition failed too many times in a row")
	// ErrRunning indicates Run was called while another run is active.
	ErrRunning = errors.New("dialogue already running")
	// ErrEmptyFlow indicates a flow with no steps.
	ErrEmptyFlow = errors.New("flow has no steps")
)

// Speech is the adapter surface the controller drives.
type Speech interface {
	Speak(ctx context.Context, text string) error
	Listen(ctx context.Context, timeout time.Duration) (speech.Result, error)
}

// Indicator is the controller-facing subset of the status display.
type Indicator interface {
	ShowHeard(context.Context, string)
	ShowFeedback(context.Context, string)
	ShowError(context.Context, string)
	CueAccepted(context.Context)
	CueRejected(context.Context)
}

// noopIndicator keeps the controller running when no display is wired.
type noopIndicator struct{}

func (noopIndicator) ShowHeard(context.Context, string)    {}
func (noopIndicator) ShowFeedback(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)    {}
func (noopIndicator) CueAccepted(context.Context)          {}
func (noopIndicator) CueRejected(context.Context)          {}

// Options tunes retry behavior shared by flows and loops.
type Options struct {
	// MaxFailures is the number of consecutive recognition failures tolerated
	// before giving up. Zero retries forever.
	MaxFailures int
	// RetryInterval spaces out listens after a failure.
	RetryInterval time.Duration
	Vocabulary    spoken.Vocabulary
	Messages      Messages
}

func (o Options) withDefaults() Options {
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if len(o.Vocabulary.Affirmative) == 0 && len(o.Vocabulary.Negative) == 0 {
		o.Vocabulary = spoken.DefaultVocabulary
	}
	o.Messages = o.Messages.merge(DefaultMessages)
	return o
}

// Result is the complete output of one Run.
type Result struct {
	Flow       string
	SessionID  string
	State      fsm.State
	Outcome    Outcome
	Escaped    bool
	Values     []Field
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller runs linear flows one at a time.
type Controller struct {
	logger    *slog.Logger
	speech    Speech
	indicator Indicator
	opts      Options
	retry     *rate.Limiter

	mu      sync.RWMutex
	state   fsm.State
	running bool
	flow    string
	step    string
	cancel  context.CancelFunc
}

// NewController constructs a controller with safe fallbacks.
func NewController(logger *slog.Logger, speech Speech, indicator Indicator, opts Options) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	opts = opts.withDefaults()
	return &Controller{
		logger:    logger,
		speech:    speech,
		indicator: indicator,
		opts:      opts,
		retry:     rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
		state:     fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) setStep(id string) {
	c.mu.Lock()
	c.step = id
	c.mu.Unlock()
}

// begin claims the controller for one run. Any state left by a previous run is stale.
func (c *Controller) begin(flow string, cancel context.CancelFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrRunning
	}
	c.state = fsm.StateIdle
	c.running = true
	c.flow = flow
	c.step = ""
	c.cancel = cancel
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.cancel = nil
	c.step = ""
}

// Run drives flow to completion: every step is prompted, heard, normalized, and
// validated in order, then the values are confirmed and executed.
func (c *Controller) Run(ctx context.Context, flow Flow) Result {
	result := Result{Flow: flow.Name, StartedAt: time.Now()}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.begin(flow.Name, cancel); err != nil {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}
	defer c.end()

	session := newSession(flow.Name)
	result.SessionID = session.ID
	logger := c.logger.With("session_id", session.ID, "flow", flow.Name)

	finish := func(err error) Result {
		if err != nil {
			logger.Error("dialogue failed", "error", err.Error(), "state", string(c.State()))
			_ = c.transition(fsm.EventFail)
			result.Err = err
		}
		result.State = c.State()
		result.Values = session.displayFields(flow.Steps)
		result.FinishedAt = time.Now()
		return result
	}

	if len(flow.Steps) == 0 {
		return finish(ErrEmptyFlow)
	}
	if err := c.transition(fsm.EventStart); err != nil {
		return finish(err)
	}

	messages := flow.Messages.merge(c.opts.Messages)
	summary := flow.Summary
	if summary == nil {
		summary = DefaultSummary(flow.Steps)
	}

	logger.Info("dialogue started")
	if err := c.speech.Speak(runCtx, flow.Greeting); err != nil {
		return finish(err)
	}

	failures := 0
	for {
		step := flow.Steps[session.Step]
		c.setStep(step.ID)

		if err := c.speech.Speak(runCtx, step.Prompt); err != nil {
			return finish(err)
		}
		if err := c.transition(fsm.EventPrompted); err != nil {
			return finish(err)
		}

		heard, err := c.listen(runCtx, step.Timeout, &failures)
		if err != nil {
			if !speech.IsRecognitionFailure(err) {
				return finish(err)
			}
			if err := c.retryAfterFailure(runCtx, firstNonEmpty(step.NoInput, messages.NoInput)); err != nil {
				return finish(err)
			}
			if err := c.transition(fsm.EventRejected); err != nil {
				return finish(err)
			}
			continue
		}

		if step.Escape != nil {
			if outcome, ok := step.Escape(heard); ok {
				logger.Info("dialogue escaped", "step", step.ID, "next", string(outcome.Next))
				if err := c.transition(fsm.EventEscape); err != nil {
					return finish(err)
				}
				if err := c.speech.Speak(runCtx, outcome.Message); err != nil {
					return finish(err)
				}
				result.Outcome = outcome
				result.Escaped = true
				return finish(nil)
			}
		}

		value := step.normalize(heard)
		c.indicator.ShowHeard(runCtx, step.display(value))
		if step.Validate != nil && !step.Validate(value) {
			logger.Info("value rejected", "step", step.ID)
			c.indicator.CueRejected(runCtx)
			if err := c.speech.Speak(runCtx, step.Invalid); err != nil {
				return finish(err)
			}
			if err := c.transition(fsm.EventRejected); err != nil {
				return finish(err)
			}
			continue
		}

		c.indicator.CueAccepted(runCtx)
		session.Values.Set(step.ID, value)
		if session.Step < len(flow.Steps)-1 {
			session.Step++
			if err := c.transition(fsm.EventAccepted); err != nil {
				return finish(err)
			}
			continue
		}

		if flow.SkipConfirm {
			corrected, err := c.check(runCtx, flow, session)
			if err != nil {
				return finish(err)
			}
			if corrected {
				if err := c.transition(fsm.EventRejected); err != nil {
					return finish(err)
				}
				continue
			}
			if err := c.transition(fsm.EventCommit); err != nil {
				return finish(err)
			}
		} else {
			if err := c.transition(fsm.EventCompleted); err != nil {
				return finish(err)
			}
			corrected, err := c.check(runCtx, flow, session)
			if err != nil {
				return finish(err)
			}
			if corrected {
				if err := c.transition(fsm.EventCorrected); err != nil {
					return finish(err)
				}
				continue
			}

			c.setStep("confirm")
			affirmed, err := c.confirm(runCtx, summary(session.Values), messages, &failures)
			if err != nil {
				return finish(err)
			}
			if !affirmed {
				logger.Info("dialogue restarted")
				if err := c.speech.Speak(runCtx, messages.Restart); err != nil {
					return finish(err)
				}
				session.restart()
				if err := c.transition(fsm.EventDenied); err != nil {
					return finish(err)
				}
				continue
			}
			if err := c.transition(fsm.EventAffirmed); err != nil {
				return finish(err)
			}
		}

		c.setStep("execute")
		outcome, err := c.execute(runCtx, flow, session)
		if err != nil {
			corrected, cerr := c.correct(runCtx, flow, session, err)
			if cerr != nil {
				return finish(cerr)
			}
			if corrected {
				if err := c.transition(fsm.EventCorrected); err != nil {
					return finish(err)
				}
				continue
			}
		}

		if err := c.speech.Speak(runCtx, outcome.Message); err != nil {
			return finish(err)
		}
		if err := c.transition(fsm.EventExecuted); err != nil {
			return finish(err)
		}
		logger.Info("dialogue completed", "next", string(outcome.Next))
		result.Outcome = outcome
		return finish(nil)
	}
}

// check runs the flow's cross-field check and applies a resulting correction.
func (c *Controller) check(ctx context.Context, flow Flow, session *Session) (bool, error) {
	if flow.Check == nil {
		return false, nil
	}
	if err := flow.Check(session.Values); err != nil {
		return c.correct(ctx, flow, session, err)
	}
	return false, nil
}

func (c *Controller) execute(ctx context.Context, flow Flow, session *Session) (Outcome, error) {
	if flow.Execute == nil {
		return Outcome{}, nil
	}
	return flow.Execute(ctx, session.Values)
}

// correct applies a *Correction by speaking its message and rewinding the session.
// Any other error is returned unchanged.
func (c *Controller) correct(ctx context.Context, flow Flow, session *Session, err error) (bool, error) {
	var correction *Correction
	if !errors.As(err, &correction) {
		return false, err
	}

	index := flow.stepIndex(correction.StepID)
	if index < 0 {
		return false, fmt.Errorf("correction targets unknown step %q", correction.StepID)
	}

	c.indicator.CueRejected(ctx)
	if err := c.speech.Speak(ctx, correction.Message); err != nil {
		return false, err
	}
	session.rewind(flow.Steps, index)
	return true, nil
}

// confirm speaks the summary and waits for a yes or no. Unclear replies re-ask
// without guessing.
func (c *Controller) confirm(ctx context.Context, summary string, messages Messages, failures *int) (bool, error) {
	if err := c.speech.Speak(ctx, summary); err != nil {
		return false, err
	}

	for {
		heard, err := c.listen(ctx, 0, failures)
		if err != nil {
			if !speech.IsRecognitionFailure(err) {
				return false, err
			}
			if err := c.retryAfterFailure(ctx, messages.NoInput); err != nil {
				return false, err
			}
			continue
		}

		c.indicator.ShowHeard(ctx, heard)
		switch c.opts.Vocabulary.Classify(heard) {
		case spoken.Affirmative:
			return true, nil
		case spoken.Negative:
			return false, nil
		default:
			if err := c.speech.Speak(ctx, messages.Unclear); err != nil {
				return false, err
			}
			if err := c.transition(fsm.EventUnclear); err != nil {
				return false, err
			}
		}
	}
}

// listen wraps one adapter listen and tracks consecutive recognition failures.
func (c *Controller) listen(ctx context.Context, timeout time.Duration, failures *int) (string, error) {
	result, err := c.speech.Listen(ctx, timeout)
	if err != nil {
		if speech.IsRecognitionFailure(err) {
			*failures++
			c.logger.Debug("recognition failed", "error", err.Error(), "consecutive", *failures)
			if c.opts.MaxFailures > 0 && *failures >= c.opts.MaxFailures {
				return "", fmt.Errorf("%w: %v", ErrRecognitionExhausted, err)
			}
		}
		return "", err
	}
	*failures = 0
	return result.Transcript, nil
}

// retryAfterFailure speaks message and paces the next listen.
func (c *Controller) retryAfterFailure(ctx context.Context, message string) error {
	c.indicator.ShowError(ctx, message)
	if err := c.speech.Speak(ctx, message); err != nil {
		return err
	}
	return c.retry.Wait(ctx)
}

// Handle serves IPC commands while a flow runs.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	c.mu.RLock()
	state, flow, step, cancel := c.state, c.flow, c.step, c.cancel
	c.mu.RUnlock()

	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(state), Page: flow, Step: step, Message: "status"}
	case ipc.CommandStop:
		if cancel == nil {
			return ipc.Response{OK: false, State: string(state), Error: "no dialogue running"}
		}
		cancel()
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	case ipc.CommandPause, ipc.CommandResume:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s a form dialogue", req.Command)}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
