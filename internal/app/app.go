package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/cli"
	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/doctor"
	"github.com/LokeshkumarVD/Voice-email-system/internal/indicator"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/logging"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
	"github.com/LokeshkumarVD/Voice-email-system/internal/pages"
	"github.com/LokeshkumarVD/Voice-email-system/internal/speech"
	"github.com/LokeshkumarVD/Voice-email-system/internal/version"
)

const binaryName = "voicemail"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Speech replaces the configured speech backend.
	Speech dialogue.Speech
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}
	if parsed.Console {
		cfgLoaded.Config.Speech.Backend = config.BackendConsole
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"speech_backend", cfgLoaded.Config.Speech.Backend,
	)

	switch {
	case parsed.Command == cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case parsed.Command == cli.CommandStatus:
		return r.commandStatus(ctx)
	case parsed.Command.IsControl():
		return r.forwardOrFail(ctx, string(parsed.Command))
	case parsed.Command.IsPage():
		return r.commandRun(ctx, cfgLoaded.Config, dialogue.Page(parsed.Command), logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, describeStatus(resp))
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// describeStatus renders "page state [step]", or "idle" when nothing runs.
func describeStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	parts := []string{}
	if resp.Page != "" {
		parts = append(parts, resp.Page)
	}
	parts = append(parts, state)
	if resp.Step != "" {
		parts = append(parts, "step="+resp.Step)
	}
	return strings.Join(parts, " ")
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running %s instance\n", binaryName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the control socket and walks pages starting at start.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, start dialogue.Page, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	storePath, err := config.ResolveStorePath(cfg.Store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	store, err := mailbox.Open(ctx, storePath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	prefs, err := mailbox.OpenPrefs(ctx, cfg.Store, store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; keeping preferences in the mailbox database\n", err)
		logger.Warn("prefs backend unavailable", "backend", cfg.Store.PrefsBackend, "error", err.Error())
		prefs = store.Prefs()
	}
	defer func() { _ = prefs.Close() }()

	var sender mailbox.Sender
	if addr := strings.TrimSpace(cfg.Mail.SMTPAddr); addr != "" {
		sender = mailbox.NewSMTPSender(addr, cfg.Mail.SMTPFrom)
	}
	postman := mailbox.NewPostman(store, sender, cfg.Mail.Domain, logger)

	status := indicator.New(cfg.Indicator, logger, r.Stdout)
	defer status.Close()

	voice, closeVoice, err := r.buildSpeech(cfg.Speech, status, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeVoice()

	site := pages.NewSite(logger, voice, status, dialogueOptions(cfg.Dialogue), pages.Deps{
		Mailbox:       store,
		Prefs:         prefs,
		Postman:       postman,
		Domain:        cfg.Mail.Domain,
		ChoiceTimeout: time.Duration(cfg.Dialogue.ChoiceTimeoutMS) * time.Millisecond,
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, site)
	}()

	result := runPages(ctx, site, start, logger)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	switch {
	case result.Err == nil:
		return 0
	case errors.Is(result.Err, context.Canceled), errors.Is(result.Err, speech.ErrClosed):
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
}

func dialogueOptions(cfg config.DialogueConfig) dialogue.Options {
	return dialogue.Options{
		MaxFailures:   cfg.MaxRecognitionFailures,
		RetryInterval: time.Duration(cfg.RetryIntervalMS) * time.Millisecond,
	}
}

// buildSpeech wires the configured backend behind a speech.IO. The returned
// func releases the terminal or subprocesses.
func (r Runner) buildSpeech(cfg config.SpeechConfig, observer speech.Observer, logger *slog.Logger) (dialogue.Speech, func(), error) {
	if r.Speech != nil {
		return r.Speech, func() {}, nil
	}

	opts := speech.IOOptions{
		Language:      cfg.Language,
		ListenTimeout: time.Duration(cfg.ListenTimeoutMS) * time.Millisecond,
		AllowOverlap:  cfg.AllowOverlap,
	}

	switch cfg.Backend {
	case config.BackendCommand:
		speaker := speech.NewCommandSpeaker(cfg.TTS.Argv, cfg.Language)
		recognizer := speech.NewCommandRecognizer(cfg.STT.Argv)
		voice := speech.NewIO(speaker, recognizer, observer, logger, opts)
		return voice, func() { _ = voice.Cancel() }, nil
	default:
		console, err := speech.NewConsole("you> ")
		if err != nil {
			return nil, nil, err
		}
		voice := speech.NewIO(console, console, observer, logger, opts)
		return voice, func() { _ = console.Close() }, nil
	}
}

type visitor interface {
	Visit(ctx context.Context, page dialogue.Page, carry map[string]string) dialogue.Result
}

// runPages follows Outcome.Next from start until a page ends without one,
// fails, or ctx is cancelled.
func runPages(ctx context.Context, v visitor, start dialogue.Page, logger *slog.Logger) dialogue.Result {
	page := start
	var carry map[string]string
	for {
		result := v.Visit(ctx, page, carry)
		logPageResult(logger, result)
		if result.Err != nil || result.Outcome.Next == "" || ctx.Err() != nil {
			return result
		}
		page, carry = result.Outcome.Next, result.Outcome.Carry
	}
}

func logPageResult(logger *slog.Logger, result dialogue.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"page", result.Flow,
		"session_id", result.SessionID,
		"state", string(result.State),
		"escaped", result.Escaped,
		"next", string(result.Outcome.Next),
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}

	if result.Err != nil {
		logger.Error("page failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("page complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.NoOwner(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
