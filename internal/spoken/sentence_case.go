package spoken

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	pronounIContractionPattern = regexp.MustCompile(`\bi['’](?:m|d|ll|ve|re|s)\b`)
	pronounIWordPattern        = regexp.MustCompile(`\bi\b`)
)

// capitalizeSentences uppercases the first letter of each sentence and the pronoun "i".
func capitalizeSentences(text string) string {
	runes := []rune(text)
	capitalizeNext := true
	for i, r := range runes {
		switch {
		case capitalizeNext && unicode.IsLetter(r):
			runes[i] = unicode.ToUpper(r)
			capitalizeNext = false
		case capitalizeNext && unicode.IsDigit(r):
			capitalizeNext = false
		case r == '.' || r == '!' || r == '?':
			capitalizeNext = isSentenceEnd(runes, i)
		}
	}

	out := pronounIContractionPattern.ReplaceAllStringFunc(string(runes), func(match string) string {
		return "I" + match[1:]
	})
	return pronounIWordPattern.ReplaceAllStringFunc(out, strings.ToUpper)
}

// isSentenceEnd reports whether the punctuation at idx closes a sentence rather than
// sitting inside a token like "example.com" or "3.5".
func isSentenceEnd(runes []rune, idx int) bool {
	if idx+1 >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[idx+1])
}
