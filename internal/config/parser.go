package config

import (
	"errors"
	"strings"
)

// Parse reads configuration content as JSONC, overlays it on base and
// validates the result. Empty content yields base.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := overlay(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

// overlay applies content to base without validating, so later layers
// (.env, environment) can still fill in required values.
func overlay(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return base, nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("config must be a JSONC object")
	}
	return parseJSONC(content, base)
}
