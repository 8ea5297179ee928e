package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. VOICEMAIL_SPEECH_BACKEND.
const EnvPrefix = "VOICEMAIL_"

// dotEnvFiles lists .env candidates: next to the config file, then the working directory.
func dotEnvFiles(configPath string) []string {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	found := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			found = append(found, abs)
		}
	}
	return found
}

// loadDotEnv exports .env entries that are not already set in the process environment.
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// applyEnv overlays VOICEMAIL_* variables on cfg. Unset variables leave fields untouched.
func applyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("apply %s* environment: %w", EnvPrefix, err)
	}
	return nil
}
