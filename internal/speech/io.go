package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// IOOptions configures an IO adapter.
type IOOptions struct {
	Language      string
	ListenTimeout time.Duration
	// AllowOverlap keeps earlier utterances playing when a new one starts.
	AllowOverlap bool
}

// Observer receives adapter activity, e.g. for a status display.
type Observer interface {
	Speaking(ctx context.Context, text string)
	Listening(ctx context.Context)
}

type noopObserver struct{}

func (noopObserver) Speaking(context.Context, string) {}
func (noopObserver) Listening(context.Context)        {}

// IO pairs a Speaker and a Recognizer and enforces one active listen at a time.
type IO struct {
	speaker    Speaker
	recognizer Recognizer
	observer   Observer
	logger     *slog.Logger
	opts       IOOptions

	mu        sync.Mutex
	listening bool
}

// NewIO constructs an adapter. A nil observer is replaced by a no-op.
func NewIO(speaker Speaker, recognizer Recognizer, observer Observer, logger *slog.Logger, opts IOOptions) *IO {
	if observer == nil {
		observer = noopObserver{}
	}
	return &IO{
		speaker:    speaker,
		recognizer: recognizer,
		observer:   observer,
		logger:     logger,
		opts:       opts,
	}
}

// Speak plays text and blocks until playback completes. Unless overlap is allowed,
// any utterance still playing is cancelled first.
func (s *IO) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if !s.opts.AllowOverlap {
		if err := s.speaker.Cancel(); err != nil {
			s.logWarn("cancel playback failed", "error", err.Error())
		}
	}

	s.observer.Speaking(ctx, text)
	return s.speaker.Speak(ctx, text)
}

// Cancel stops any utterance currently playing.
func (s *IO) Cancel() error {
	return s.speaker.Cancel()
}

// Listen captures one utterance. timeout <= 0 uses the configured default; when both
// are zero the listen is bounded only by ctx. The timer is released as soon as a
// result arrives.
func (s *IO) Listen(ctx context.Context, timeout time.Duration) (Result, error) {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.listening = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
	}()

	if timeout <= 0 {
		timeout = s.opts.ListenTimeout
	}

	listenCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		listenCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.observer.Listening(ctx)
	result, err := s.recognizer.Recognize(listenCtx, Options{Language: s.opts.Language, Timeout: timeout})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(listenCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		return Result{}, err
	}

	result.Transcript = strings.TrimSpace(result.Transcript)
	if result.Transcript == "" {
		return Result{}, ErrNoSpeech
	}

	if s.logger != nil {
		s.logger.Debug("heard", "chars", len(result.Transcript), "confidence", result.Confidence)
	}
	return result, nil
}

// Listening reports whether a listen is in progress.
func (s *IO) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *IO) logWarn(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, args...)
}
