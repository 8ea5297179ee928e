package dialogue

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/fsm"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/stretchr/testify/require"
)

type turn struct {
	text string
	err  error
}

func heard(text string) turn { return turn{text: text} }

func failed(err error) turn { return turn{err: err} }

// scriptedSpeech replays recognition turns in order and records everything spoken.
// When the script runs out, Listen reports closed input.
type scriptedSpeech struct {
	mu      sync.Mutex
	turns   []turn
	spoken  []string
	listens int
	block   bool
}

func newScript(turns ...turn) *scriptedSpeech {
	return &scriptedSpeech{turns: turns}
}

func (s *scriptedSpeech) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *scriptedSpeech) Listen(ctx context.Context, _ time.Duration) (speech.Result, error) {
	s.mu.Lock()
	s.listens++
	if len(s.turns) == 0 {
		block := s.block
		s.mu.Unlock()
		if block {
			<-ctx.Done()
			return speech.Result{}, ctx.Err()
		}
		return speech.Result{}, speech.ErrClosed
	}
	next := s.turns[0]
	s.turns = s.turns[1:]
	s.mu.Unlock()

	if next.err != nil {
		return speech.Result{}, next.err
	}
	return speech.Result{Transcript: next.text, Confidence: 1}, nil
}

func (s *scriptedSpeech) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func (s *scriptedSpeech) count(text string) int {
	n := 0
	for _, line := range s.said() {
		if strings.Contains(line, text) {
			n++
		}
	}
	return n
}

type fakeIndicator struct {
	heard    []string
	accepted atomic.Int32
	rejected atomic.Int32
	errors   atomic.Int32
	mu       sync.Mutex
	// onHeard runs after a transcript is recorded.
	onHeard func(string)
}

func (f *fakeIndicator) ShowHeard(_ context.Context, text string) {
	f.mu.Lock()
	f.heard = append(f.heard, text)
	hook := f.onHeard
	f.mu.Unlock()
	if hook != nil {
		hook(text)
	}
}

func (f *fakeIndicator) ShowFeedback(context.Context, string) {}
func (f *fakeIndicator) ShowError(context.Context, string)    { f.errors.Add(1) }
func (f *fakeIndicator) CueAccepted(context.Context)          { f.accepted.Add(1) }
func (f *fakeIndicator) CueRejected(context.Context)          { f.rejected.Add(1) }

func testOptions() Options {
	return Options{MaxFailures: 5, RetryInterval: time.Millisecond}
}

type stateReader interface {
	State() fsm.State
}

func waitForState(t *testing.T, r stateReader, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return r.State() == want },
		2*time.Second, 5*time.Millisecond, "waiting for state %s (current=%s)", want, r.State())
}
