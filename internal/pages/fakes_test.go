package pages

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/stretchr/testify/require"
)

const testDomain = "voicemail.local"

type turn struct {
	text string
	err  error
}

func heard(text string) turn { return turn{text: text} }

func failed(err error) turn { return turn{err: err} }

// scriptedSpeech replays turns and records what was spoken. Once the script
// is exhausted Listen reports closed input, or blocks until cancelled.
type scriptedSpeech struct {
	mu     sync.Mutex
	turns  []turn
	spoken []string
	block  bool
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

func (s *scriptedSpeech) count(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, line := range s.spoken {
		if strings.Contains(line, text) {
			n++
		}
	}
	return n
}

type fixture struct {
	store *mailbox.Store
	prefs mailbox.Prefs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := mailbox.Open(context.Background(), filepath.Join(t.TempDir(), "mailbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &fixture{store: store, prefs: store.Prefs()}
}

func (f *fixture) site(script *scriptedSpeech) *Site {
	return NewSite(nil, script, nil, dialogue.Options{MaxFailures: 5, RetryInterval: time.Millisecond}, Deps{
		Mailbox: f.store,
		Prefs:   f.prefs,
		Postman: mailbox.NewPostman(f.store, nil, testDomain, nil),
		Domain:  testDomain,
	})
}

func (f *fixture) register(t *testing.T, username string, password string) mailbox.Account {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), mailbox.Registration{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  username,
		Password:  password,
		Domain:    testDomain,
	})
	require.NoError(t, err)
	return account
}
