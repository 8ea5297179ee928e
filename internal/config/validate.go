package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(strings.TrimSpace(cfg.Speech.Backend)) {
	case BackendConsole:
		if len(cfg.Speech.STT.Argv) > 0 {
			warnings = append(warnings, Warning{Message: "speech.stt_cmd is ignored by the console backend"})
		}
	case BackendCommand:
		if len(cfg.Speech.TTS.Argv) == 0 {
			return nil, fmt.Errorf("speech.tts_cmd must not be empty when speech.backend=command")
		}
		if len(cfg.Speech.STT.Argv) == 0 {
			return nil, fmt.Errorf("speech.stt_cmd must not be empty when speech.backend=command")
		}
	case "":
		return nil, fmt.Errorf("speech.backend must not be empty")
	default:
		return nil, fmt.Errorf("speech.backend must be one of: console, command")
	}
	if strings.TrimSpace(cfg.Speech.Language) == "" {
		return nil, fmt.Errorf("speech.language must not be empty")
	}
	if cfg.Speech.ListenTimeoutMS < 0 {
		return nil, fmt.Errorf("speech.listen_timeout_ms must be >= 0")
	}

	if cfg.Dialogue.MaxRecognitionFailures < 0 {
		return nil, fmt.Errorf("dialogue.max_recognition_failures must be >= 0")
	}
	if cfg.Dialogue.MaxRecognitionFailures == 0 {
		warnings = append(warnings, Warning{Message: "dialogue.max_recognition_failures=0 retries recognition forever"})
	}
	if cfg.Dialogue.RetryIntervalMS < 0 {
		return nil, fmt.Errorf("dialogue.retry_interval_ms must be >= 0")
	}
	if cfg.Dialogue.ChoiceTimeoutMS < 0 {
		return nil, fmt.Errorf("dialogue.choice_timeout_ms must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Store.PrefsBackend)) {
	case PrefsSQLite:
	case PrefsRedis:
		if strings.TrimSpace(cfg.Store.RedisAddr) == "" {
			return nil, fmt.Errorf("store.redis_addr must not be empty when store.prefs_backend=redis")
		}
	default:
		return nil, fmt.Errorf("store.prefs_backend must be one of: sqlite, redis")
	}
	if cfg.Store.RedisDB < 0 {
		return nil, fmt.Errorf("store.redis_db must be >= 0")
	}

	domain := strings.TrimSpace(cfg.Mail.Domain)
	if domain == "" {
		return nil, fmt.Errorf("mail.domain must not be empty")
	}
	if strings.ContainsAny(domain, "@ ") || !strings.Contains(domain, ".") {
		return nil, fmt.Errorf("mail.domain %q is not a valid domain", domain)
	}

	return warnings, nil
}
