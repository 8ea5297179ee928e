// Package config resolves, parses, validates, and defaults voicemail configuration.
package config

// Config is the fully materialized runtime configuration.
//
// The env and envPrefix tags name the VOICEMAIL_* overrides applied after the file.
type Config struct {
	Speech    SpeechConfig    `envPrefix:"SPEECH_"`
	Dialogue  DialogueConfig  `envPrefix:"DIALOGUE_"`
	Indicator IndicatorConfig `envPrefix:"INDICATOR_"`
	Store     StoreConfig     `envPrefix:"STORE_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Health    HealthConfig    `envPrefix:"HEALTH_"`
}

// Speech backends.
const (
	BackendConsole = "console"
	BackendCommand = "command"
)

// SpeechConfig selects the synthesis and recognition backends.
type SpeechConfig struct {
	Backend         string        `env:"BACKEND"`
	Language        string        `env:"LANGUAGE"`
	TTS             CommandConfig `env:"TTS_CMD"`
	STT             CommandConfig `env:"STT_CMD"`
	ListenTimeoutMS int           `env:"LISTEN_TIMEOUT_MS"`
	AllowOverlap    bool          `env:"ALLOW_OVERLAP"`
}

// DialogueConfig tunes retry behavior of the dialogue controller.
type DialogueConfig struct {
	MaxRecognitionFailures int `env:"MAX_RECOGNITION_FAILURES"`
	RetryIntervalMS        int `env:"RETRY_INTERVAL_MS"`
	ChoiceTimeoutMS        int `env:"CHOICE_TIMEOUT_MS"`
}

// IndicatorConfig controls the terminal status display and audio cues.
type IndicatorConfig struct {
	Enable          bool   `env:"ENABLE"`
	SoundEnable     bool   `env:"SOUND_ENABLE"`
	SoundListenFile string `env:"SOUND_LISTEN_FILE"`
	SoundAcceptFile string `env:"SOUND_ACCEPT_FILE"`
	SoundRejectFile string `env:"SOUND_REJECT_FILE"`
}

// Preference backends.
const (
	PrefsSQLite = "sqlite"
	PrefsRedis  = "redis"
)

// StoreConfig locates the mailbox database and the preference backend.
type StoreConfig struct {
	Path         string `env:"PATH"`
	PrefsBackend string `env:"PREFS_BACKEND"`
	RedisAddr    string `env:"REDIS_ADDR"`
	RedisDB      int    `env:"REDIS_DB"`
}

// MailConfig controls account addresses and optional SMTP relay.
type MailConfig struct {
	Domain   string `env:"DOMAIN"`
	SMTPAddr string `env:"SMTP_ADDR"`
	SMTPFrom string `env:"SMTP_FROM"`
}

// HealthConfig names an optional gRPC speech service checked by doctor.
type HealthConfig struct {
	GRPC string `env:"GRPC"`
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// UnmarshalText parses a shell-like command string, so CommandConfig can be set from env.
func (c *CommandConfig) UnmarshalText(text []byte) error {
	raw := string(text)
	argv, err := parseArgv(raw)
	if err != nil {
		return err
	}
	*c = CommandConfig{Raw: raw, Argv: argv}
	return nil
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
