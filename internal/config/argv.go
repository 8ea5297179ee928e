package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a command line like a POSIX shell without any expansion:
// single quotes are literal, double quotes honor \" and \\, a backslash
// outside quotes escapes the next rune, and "" yields an empty argument.
// A line starting with # counts as unset.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv   []string
		word   strings.Builder
		inWord bool
	)
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		case r == '\\':
			i++
			if i == len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
			}
			word.WriteRune(runes[i])
			inWord = true
		case r == '\'':
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				word.WriteRune(runes[j])
				j++
			}
			if j == len(runes) {
				return nil, fmt.Errorf("unterminated quote in command: %q", input)
			}
			i, inWord = j, true
		case r == '"':
			j := i + 1
			for ; j < len(runes) && runes[j] != '"'; j++ {
				if runes[j] == '\\' && j+1 < len(runes) && (runes[j+1] == '"' || runes[j+1] == '\\') {
					j++
				}
				word.WriteRune(runes[j])
			}
			if j == len(runes) {
				return nil, fmt.Errorf("unterminated quote in command: %q", input)
			}
			i, inWord = j, true
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}
