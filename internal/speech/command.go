package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	envLanguage      = "VOICEMAIL_SPEECH_LANG"
	envListenTimeout = "VOICEMAIL_LISTEN_TIMEOUT_MS"

	commandWaitDelay = 500 * time.Millisecond
)

// CommandSpeaker pipes text into an external TTS command.
type CommandSpeaker struct {
	argv     []string
	language string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandSpeaker constructs a speaker around argv, e.g. ["espeak-ng", "--stdin"].
func NewCommandSpeaker(argv []string, language string) *CommandSpeaker {
	return &CommandSpeaker{argv: append([]string(nil), argv...), language: language}
}

// Speak runs the TTS command with text on stdin and waits for it to exit. Playback
// stopped through Cancel is not an error.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	speakCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	_, err := runCommand(speakCtx, s.argv, text, languageEnv(s.language))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case speakCtx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("speak: %w", err)
	}
}

// Cancel kills the TTS process if one is running.
func (s *CommandSpeaker) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// CommandRecognizer runs an external STT command once per listen. The command prints
// either the transcript as plain text or a JSON object with "transcript",
// "confidence", and "alternatives".
type CommandRecognizer struct {
	argv []string
}

// NewCommandRecognizer constructs a recognizer around argv.
func NewCommandRecognizer(argv []string) *CommandRecognizer {
	return &CommandRecognizer{argv: append([]string(nil), argv...)}
}

func (r *CommandRecognizer) Recognize(ctx context.Context, opts Options) (Result, error) {
	env := languageEnv(opts.Language)
	if opts.Timeout > 0 {
		env = append(env, envListenTimeout+"="+strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	}

	stdout, err := runCommand(ctx, r.argv, "", env)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		var exitErr *commandExitError
		if errors.As(err, &exitErr) {
			return Result{}, &RecognitionError{Reason: exitErr.reason, Err: exitErr.err}
		}
		return Result{}, err
	}
	return ParseRecognizerOutput(stdout)
}

type recognizerPayload struct {
	Transcript   string   `json:"transcript"`
	Confidence   float64  `json:"confidence"`
	Alternatives []string `json:"alternatives"`
}

// ParseRecognizerOutput decodes STT command output.
func ParseRecognizerOutput(raw []byte) (Result, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Result{}, ErrNoSpeech
	}

	if strings.HasPrefix(text, "{") {
		var payload recognizerPayload
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return Result{}, &RecognitionError{Reason: "malformed recognizer output", Err: err}
		}
		if strings.TrimSpace(payload.Transcript) == "" {
			return Result{}, ErrNoSpeech
		}
		return Result{
			Transcript:   strings.TrimSpace(payload.Transcript),
			Confidence:   payload.Confidence,
			Alternatives: payload.Alternatives,
		}, nil
	}

	line, _, _ := strings.Cut(text, "\n")
	return Result{Transcript: strings.TrimSpace(line), Confidence: 1}, nil
}

func languageEnv(language string) []string {
	if language == "" {
		return nil
	}
	return []string{envLanguage + "=" + language}
}

// commandExitError is a non-zero exit; reason is stderr or the exit code.
type commandExitError struct {
	reason string
	err    *exec.ExitError
}

func (e *commandExitError) Error() string { return e.reason }
func (e *commandExitError) Unwrap() error { return e.err }

// runCommand executes argv, writes input to stdin, and returns stdout.
func runCommand(ctx context.Context, argv []string, input string, env []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(input)
	cmd.WaitDelay = commandWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason := strings.TrimSpace(stderr.String())
			if reason == "" {
				reason = fmt.Sprintf("%s exited with code %d", argv[0], exitErr.ExitCode())
			}
			return stdout.Bytes(), &commandExitError{reason: reason, err: exitErr}
		}
		return stdout.Bytes(), fmt.Errorf("run %s: %w", argv[0], err)
	}
	return stdout.Bytes(), nil
}
