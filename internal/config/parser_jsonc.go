package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Speech    *jsoncSpeech    `json:"speech"`
	Dialogue  *jsoncDialogue  `json:"dialogue"`
	Indicator *jsoncIndicator `json:"indicator"`
	Store     *jsoncStore     `json:"store"`
	Mail      *jsoncMail      `json:"mail"`
	Health    *jsoncHealth    `json:"health"`
}

type jsoncSpeech struct {
	Backend         *string `json:"backend"`
	Language        *string `json:"language"`
	TTSCmd          *string `json:"tts_cmd"`
	STTCmd          *string `json:"stt_cmd"`
	ListenTimeoutMS *int    `json:"listen_timeout_ms"`
	AllowOverlap    *bool   `json:"allow_overlap"`
}

type jsoncDialogue struct {
	MaxRecognitionFailures *int `json:"max_recognition_failures"`
	RetryIntervalMS        *int `json:"retry_interval_ms"`
	ChoiceTimeoutMS        *int `json:"choice_timeout_ms"`
}

type jsoncIndicator struct {
	Enable          *bool   `json:"enable"`
	SoundEnable     *bool   `json:"sound_enable"`
	SoundListenFile *string `json:"sound_listen_file"`
	SoundAcceptFile *string `json:"sound_accept_file"`
	SoundRejectFile *string `json:"sound_reject_file"`
}

type jsoncStore struct {
	Path         *string `json:"path"`
	PrefsBackend *string `json:"prefs_backend"`
	RedisAddr    *string `json:"redis_addr"`
	RedisDB      *int    `json:"redis_db"`
}

type jsoncMail struct {
	Domain   *string `json:"domain"`
	SMTPAddr *string `json:"smtp_addr"`
	SMTPFrom *string `json:"smtp_from"`
}

type jsoncHealth struct {
	GRPC *string `json:"grpc"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if sp := payload.Speech; sp != nil {
		setString(&cfg.Speech.Backend, sp.Backend)
		setString(&cfg.Speech.Language, sp.Language)
		setInt(&cfg.Speech.ListenTimeoutMS, sp.ListenTimeoutMS)
		setBool(&cfg.Speech.AllowOverlap, sp.AllowOverlap)
		if sp.TTSCmd != nil {
			if err := cfg.Speech.TTS.UnmarshalText([]byte(*sp.TTSCmd)); err != nil {
				return nil, fmt.Errorf("invalid speech.tts_cmd: %w", err)
			}
		}
		if sp.STTCmd != nil {
			if err := cfg.Speech.STT.UnmarshalText([]byte(*sp.STTCmd)); err != nil {
				return nil, fmt.Errorf("invalid speech.stt_cmd: %w", err)
			}
		}
	}

	if d := payload.Dialogue; d != nil {
		setInt(&cfg.Dialogue.MaxRecognitionFailures, d.MaxRecognitionFailures)
		setInt(&cfg.Dialogue.RetryIntervalMS, d.RetryIntervalMS)
		setInt(&cfg.Dialogue.ChoiceTimeoutMS, d.ChoiceTimeoutMS)
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setString(&cfg.Indicator.SoundListenFile, ind.SoundListenFile)
		setString(&cfg.Indicator.SoundAcceptFile, ind.SoundAcceptFile)
		setString(&cfg.Indicator.SoundRejectFile, ind.SoundRejectFile)
	}

	if st := payload.Store; st != nil {
		setString(&cfg.Store.Path, st.Path)
		setString(&cfg.Store.PrefsBackend, st.PrefsBackend)
		setString(&cfg.Store.RedisAddr, st.RedisAddr)
		setInt(&cfg.Store.RedisDB, st.RedisDB)
	}

	if m := payload.Mail; m != nil {
		setString(&cfg.Mail.Domain, m.Domain)
		setString(&cfg.Mail.SMTPAddr, m.SMTPAddr)
		setString(&cfg.Mail.SMTPFrom, m.SMTPFrom)
		if m.SMTPAddr != nil && strings.TrimSpace(*m.SMTPAddr) != "" && m.SMTPFrom == nil {
			warnings = append(warnings, Warning{Message: "mail.smtp_addr set without mail.smtp_from; relayed messages use the sender account address"})
		}
	}

	if h := payload.Health; h != nil {
		setString(&cfg.Health.GRPC, h.GRPC)
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// normalizeJSONC blanks out comments and trailing commas, leaving plain
// JSON of the same length so decoder offsets still point into the file.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	comma := -1
	inString, escaped := false, false

	for i := 0; i < len(buf); i++ {
		ch := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '/' && i+1 < len(buf) && buf[i+1] == '/':
			end := i + bytes.IndexAny(buf[i:], "\r\n")
			if end < i {
				end = len(buf)
			}
			blank(buf[i:end])
			i = end - 1
		case ch == '/' && i+1 < len(buf) && buf[i+1] == '*':
			rel := bytes.Index(buf[i+2:], []byte("*/"))
			if rel < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end := i + 2 + rel + 2
			blank(buf[i:end])
			i = end - 1
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		case ch == ',':
			comma = i
		default:
			if comma >= 0 && (ch == '}' || ch == ']') {
				buf[comma] = ' '
			}
			comma = -1
			inString = ch == '"'
		}
	}
	return string(buf), nil
}

// blank overwrites b with spaces, keeping line breaks.
func blank(b []byte) {
	for i, ch := range b {
		if ch != '\n' && ch != '\r' {
			b[i] = ' '
		}
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("multiple JSON values are not allowed")
	}
}

func wrapJSONDecodeError(content string, err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		offset    int64
	)
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol converts a decoder byte offset into a 1-based line and column.
func lineCol(content string, offset int64) (int, int) {
	prefix := content[:min(max(int(offset)-1, 0), len(content))]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
