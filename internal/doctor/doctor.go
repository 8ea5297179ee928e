// Package doctor runs readiness diagnostics for config, speech tools, the
// microphone, the mailbox store, and optional remote services.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LokeshkumarVD/Voice-email-system/internal/audio"
	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	switch cfg.Speech.Backend {
	case config.BackendCommand:
		checks = append(checks,
			checkCommand(cfg.Speech.TTS.Argv, "speech.tts_cmd"),
			checkCommand(cfg.Speech.STT.Argv, "speech.stt_cmd"),
			checkMicrophone(ctx),
		)
	default:
		checks = append(checks, Check{Name: "speech.backend", Pass: true, Message: "console backend reads typed input"})
	}

	checks = append(checks, checkStore(ctx, cfg.Store))
	if strings.EqualFold(cfg.Store.PrefsBackend, config.PrefsRedis) {
		checks = append(checks, checkRedis(ctx, cfg.Store))
	}
	if addr := strings.TrimSpace(cfg.Mail.SMTPAddr); addr != "" {
		checks = append(checks, checkTCP(ctx, "mail.smtp", addr))
	}
	if target := strings.TrimSpace(cfg.Health.GRPC); target != "" {
		checks = append(checks, checkGRPCHealth(ctx, target))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("no file at %q; using defaults", loaded.Path)
	}
	if n := len(loaded.EnvFiles); n > 0 {
		message += fmt.Sprintf(" (+%d env file(s))", n)
	}
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" with %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkMicrophone(ctx context.Context) Check {
	mics, err := audio.Microphones(ctx)
	if err != nil {
		return Check{Name: "audio.microphone", Pass: false, Message: err.Error()}
	}
	mic, err := audio.Usable(mics)
	if err != nil {
		return Check{Name: "audio.microphone", Pass: false, Message: err.Error()}
	}
	return Check{Name: "audio.microphone", Pass: true, Message: fmt.Sprintf("using %q (%s)", mic.ID, mic.State)}
}

// checkStore opens the mailbox database, creating it when missing.
func checkStore(ctx context.Context, cfg config.StoreConfig) Check {
	path, err := config.ResolveStorePath(cfg)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	store, err := mailbox.Open(ctx, path)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("writable at %s", path)}
}

func checkRedis(ctx context.Context, cfg config.StoreConfig) Check {
	prefs, err := mailbox.NewRedisPrefs(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return Check{Name: "store.redis", Pass: false, Message: err.Error()}
	}
	_ = prefs.Close()
	return Check{Name: "store.redis", Pass: true, Message: fmt.Sprintf("reachable at %s", cfg.RedisAddr)}
}

func checkTCP(ctx context.Context, name string, addr string) Check {
	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s: %v", addr, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", addr)}
}

// checkGRPCHealth asks a speech service for its overall serving status.
func checkGRPCHealth(ctx context.Context, target string) Check {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Check{Name: "health.grpc", Pass: false, Message: fmt.Sprintf("dial %s: %v", target, err)}
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return Check{Name: "health.grpc", Pass: false, Message: fmt.Sprintf("health check %s: %v", target, err)}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "health.grpc", Pass: false, Message: fmt.Sprintf("%s reports %s", target, resp.GetStatus())}
	}
	return Check{Name: "health.grpc", Pass: true, Message: fmt.Sprintf("serving at %s", target)}
}
