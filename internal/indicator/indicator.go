// Package indicator renders dialogue status to the terminal and plays audio cues.
package indicator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorBlue   = lipgloss.Color("#89b4fa")
	colorMauve  = lipgloss.Color("#cba6f7")
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorRed    = lipgloss.Color("#f38ba8")
	colorSubtle = lipgloss.Color("#6c7086")

	listeningStyle = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	speakingStyle  = lipgloss.NewStyle().Foreground(colorMauve)
	heardStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	feedbackStyle  = lipgloss.NewStyle().Foreground(colorSubtle).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// Status is the concrete indicator used by page runs. It satisfies both the
// speech observer and the dialogue indicator contracts.
type Status struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	labels labels
	out    io.Writer

	mu      sync.Mutex
	last    string
	soundMu sync.Mutex
	cues    sync.WaitGroup
	emit    func(cueKind, config.IndicatorConfig) error
}

// New creates a status indicator writing to out.
func New(cfg config.IndicatorConfig, logger *slog.Logger, out io.Writer) *Status {
	if out == nil {
		out = io.Discard
	}
	return &Status{
		cfg:    cfg,
		logger: logger,
		labels: labelsFromEnv(),
		out:    out,
		emit:   emitCue,
	}
}

// Speaking shows the prompt currently being synthesized.
func (s *Status) Speaking(_ context.Context, text string) {
	s.print(speakingStyle, s.labels.speaking+" "+text)
}

// Listening shows the listening state and emits the listen cue.
func (s *Status) Listening(context.Context) {
	s.playCue(cueListen)
	s.print(listeningStyle, s.labels.listening)
}

// ShowHeard echoes what the recognizer understood.
func (s *Status) ShowHeard(_ context.Context, text string) {
	s.print(heardStyle, fmt.Sprintf(s.labels.heard, text))
}

// ShowFeedback displays a transient status line.
func (s *Status) ShowFeedback(_ context.Context, text string) {
	s.print(feedbackStyle, text)
}

// ShowError displays an error-state line.
func (s *Status) ShowError(_ context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = s.labels.errorText
	}
	s.print(errorStyle, text)
}

// CueAccepted emits the accepted-input cue.
func (s *Status) CueAccepted(context.Context) {
	s.playCue(cueAccept)
}

// CueRejected emits the rejected-input cue.
func (s *Status) CueRejected(context.Context) {
	s.playCue(cueReject)
}

// Close waits for in-flight cues to finish playing.
func (s *Status) Close() {
	s.cues.Wait()
}

// print writes one styled line, collapsing immediate repeats of the same line.
func (s *Status) print(style lipgloss.Style, text string) {
	if !s.cfg.Enable {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.last {
		return
	}
	s.last = text
	if _, err := fmt.Fprintln(s.out, style.Render(text)); err != nil {
		s.log("indicator write failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (s *Status) playCue(kind cueKind) {
	if !s.cfg.SoundEnable {
		return
	}
	s.cues.Add(1)
	go func() {
		defer s.cues.Done()
		s.soundMu.Lock()
		defer s.soundMu.Unlock()
		if err := s.emit(kind, s.cfg); err != nil {
			s.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (s *Status) log(message string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Debug(message, "error", err.Error())
}
