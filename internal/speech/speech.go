// Package speech adapts text-to-speech and speech-to-text engines to blocking calls.
package speech

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSpeech indicates the recognizer finished without hearing anything.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrTimeout indicates the listen deadline passed before a result arrived.
	ErrTimeout = errors.New("listen timed out")
	// ErrBusy indicates a listen was requested while another one is active.
	ErrBusy = errors.New("recognizer already listening")
	// ErrClosed indicates the input source is gone and no further results will arrive.
	ErrClosed = errors.New("speech input closed")
)

// RecognitionError is an engine-reported recognition failure.
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return "recognition failed: " + e.Err.Error()
	}
	return "recognition failed: " + e.Reason
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// IsRecognitionFailure reports whether err is a retryable recognition outcome.
func IsRecognitionFailure(err error) bool {
	var recErr *RecognitionError
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrTimeout) || errors.As(err, &recErr)
}

// Result is one recognized utterance. Only Transcript drives dialogue logic.
type Result struct {
	Transcript   string
	Confidence   float64
	Alternatives []string
}

// Options is passed to a Recognizer for one listen.
type Options struct {
	Language string
	Timeout  time.Duration
}

// Speaker plays text aloud. Speak blocks until playback finishes or is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Cancel() error
}

// Recognizer captures one utterance.
type Recognizer interface {
	Recognize(ctx context.Context, opts Options) (Result, error)
}

// SpeakerFunc adapts a function to the Speaker interface. Cancel is a no-op.
type SpeakerFunc func(context.Context, string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

func (SpeakerFunc) Cancel() error { return nil }
