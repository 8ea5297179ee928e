package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			Backend:         BackendConsole,
			Language:        "en-US",
			ListenTimeoutMS: 8000,
		},
		Dialogue: DialogueConfig{
			MaxRecognitionFailures: 8,
			RetryIntervalMS:        500,
			ChoiceTimeoutMS:        3000,
		},
		Indicator: IndicatorConfig{
			Enable:      true,
			SoundEnable: false,
		},
		Store: StoreConfig{
			PrefsBackend: PrefsSQLite,
			RedisAddr:    "127.0.0.1:6379",
		},
		Mail: MailConfig{
			Domain: "voicemail.local",
		},
	}
}
