package indicator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/stretchr/testify/require"
)

func TestStatusWritesStatusLines(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")
	var out bytes.Buffer
	status := New(config.IndicatorConfig{Enable: true}, nil, &out)
	ctx := context.Background()

	status.Speaking(ctx, "What is your username?")
	status.Listening(ctx)
	status.ShowHeard(ctx, "alice")
	status.ShowFeedback(ctx, "Opening Inbox...")
	status.ShowError(ctx, "")
	status.ShowError(ctx, "Microphone access denied")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	require.Contains(t, lines[0], "What is your username?")
	require.Contains(t, lines[1], "Listening")
	require.Contains(t, lines[2], "You said: alice")
	require.Contains(t, lines[3], "Opening Inbox...")
	require.Contains(t, lines[4], "Speech recognition error")
	require.Contains(t, lines[5], "Microphone access denied")
}

func TestStatusCollapsesRepeatedLines(t *testing.T) {
	var out bytes.Buffer
	status := New(config.IndicatorConfig{Enable: true}, nil, &out)
	ctx := context.Background()

	status.Listening(ctx)
	status.Listening(ctx)
	status.ShowHeard(ctx, "inbox")
	status.Listening(ctx)

	require.Equal(t, 3, strings.Count(out.String(), "\n"))
}

func TestStatusDisabledWritesNothing(t *testing.T) {
	var out bytes.Buffer
	status := New(config.IndicatorConfig{Enable: false}, nil, &out)
	status.Listening(context.Background())
	status.ShowHeard(context.Background(), "hello")
	status.ShowError(context.Background(), "boom")
	require.Empty(t, out.String())
}

func TestStatusCuesFollowSoundSetting(t *testing.T) {
	var mu sync.Mutex
	var played []cueKind
	record := func(kind cueKind, _ config.IndicatorConfig) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return errors.New("no pulse server in tests")
	}

	quiet := New(config.IndicatorConfig{SoundEnable: false}, nil, nil)
	quiet.emit = record
	quiet.CueAccepted(context.Background())
	quiet.Close()
	require.Empty(t, played)

	loud := New(config.IndicatorConfig{SoundEnable: true}, nil, nil)
	loud.emit = record
	loud.CueAccepted(context.Background())
	loud.CueRejected(context.Background())
	loud.Listening(context.Background())
	loud.Close()

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []cueKind{cueAccept, cueReject, cueListen}, played)
}
