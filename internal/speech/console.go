package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
)

var consoleVoiceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")).Bold(true)

// LineReader is the subset of *readline.Instance used by Console.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

type consoleLine struct {
	text string
	err  error
}

// Console speaks by printing and recognizes typed lines. It stands in for audio
// engines during development and on machines without a microphone.
type Console struct {
	out    io.Writer
	reader LineReader

	startOnce sync.Once
	lines     chan consoleLine
	closeOnce sync.Once
}

// NewConsole builds a terminal-backed Console using readline for input.
func NewConsole(prompt string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("open console input: %w", err)
	}
	return NewConsoleWithReader(rl.Stdout(), rl), nil
}

// NewConsoleWithReader builds a Console over arbitrary input and output.
func NewConsoleWithReader(out io.Writer, reader LineReader) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:    out,
		reader: reader,
		lines:  make(chan consoleLine, 1),
	}
}

// Speak prints text as a voice line.
func (c *Console) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.out, consoleVoiceStyle.Render("voice: ")+text)
	return err
}

// Cancel is a no-op; printed lines complete immediately.
func (c *Console) Cancel() error { return nil }

// Recognize waits for the next typed line.
func (c *Console) Recognize(ctx context.Context, _ Options) (Result, error) {
	c.startOnce.Do(func() { go c.readLoop() })

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return Result{}, ErrClosed
		}
		if line.err != nil {
			return Result{}, line.err
		}
		text := strings.TrimSpace(line.text)
		if text == "" {
			return Result{}, ErrNoSpeech
		}
		return Result{Transcript: text, Confidence: 1}, nil
	}
}

// Close releases the terminal.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		text, err := c.reader.Readline()
		switch {
		case err == nil:
			c.lines <- consoleLine{text: text}
		case errors.Is(err, readline.ErrInterrupt):
			c.lines <- consoleLine{err: &RecognitionError{Reason: "aborted", Err: err}}
		default:
			return
		}
	}
}
