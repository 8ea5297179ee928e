// Package spoken turns recognized utterances into the literal text a user meant to enter.
package spoken

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how an utterance is rewritten.
type Mode int

const (
	// ModeCompact substitutes spoken symbol names and joins tokens with no separator.
	// Used for usernames and passwords.
	ModeCompact Mode = iota
	// ModeEmail is ModeCompact plus provider-domain completion.
	ModeEmail
	// ModeFreeText keeps natural spacing and skips symbol substitution.
	// Used for names, subjects, and message bodies.
	ModeFreeText
)

func (m Mode) String() string {
	switch m {
	case ModeCompact:
		return "compact"
	case ModeEmail:
		return "email"
	case ModeFreeText:
		return "free_text"
	default:
		return "unknown"
	}
}

// Options controls utterance normalization.
type Options struct {
	Mode Mode
	// CapitalizeSentences applies sentence casing in ModeFreeText.
	CapitalizeSentences bool
}

const capitalMarker = "capital"

// Normalize rewrites one utterance according to opts.
func Normalize(utterance string, opts Options) string {
	switch opts.Mode {
	case ModeFreeText:
		text := strings.Join(strings.Fields(utterance), " ")
		if opts.CapitalizeSentences {
			text = capitalizeSentences(text)
		}
		return text
	case ModeEmail:
		return expandProvider(compact(utterance))
	default:
		return compact(utterance)
	}
}

// Compact is Normalize in ModeCompact.
func Compact(utterance string) string {
	return Normalize(utterance, Options{Mode: ModeCompact})
}

// Email is Normalize in ModeEmail.
func Email(utterance string) string {
	return Normalize(utterance, Options{Mode: ModeEmail})
}

// FreeText is Normalize in ModeFreeText without sentence casing.
func FreeText(utterance string) string {
	return Normalize(utterance, Options{Mode: ModeFreeText})
}

// Fold lowercases, trims, and strips combining marks so "Café" and "cafe" compare equal.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.TrimSpace(strings.ToLower(folded))
}

func compact(utterance string) string {
	tokens := strings.Fields(Fold(utterance))
	if len(tokens) == 0 {
		return ""
	}

	var out strings.Builder
	out.Grow(len(utterance))

	capitalizeNext := false
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if token == capitalMarker {
			capitalizeNext = true
			continue
		}

		if capitalizeNext && isSingleLetter(token) {
			out.WriteString(strings.ToUpper(token))
			capitalizeNext = false
			continue
		}
		capitalizeNext = false

		if i+1 < len(tokens) {
			if symbol, ok := phraseSymbols[token+" "+tokens[i+1]]; ok {
				out.WriteString(symbol)
				i++
				continue
			}
		}
		if symbol, ok := wordSymbols[token]; ok {
			out.WriteString(symbol)
			continue
		}
		out.WriteString(token)
	}

	return out.String()
}

func isSingleLetter(token string) bool {
	return len(token) == 1 && token[0] >= 'a' && token[0] <= 'z'
}

// expandProvider completes "name@gmail" into "name@gmail.com" for well-known providers.
func expandProvider(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return address
	}
	domain := address[at+1:]
	if suffix, ok := providerDomains[domain]; ok {
		return address[:at+1] + domain + suffix
	}
	return address
}
