// Package validate holds the field predicates used by spoken forms.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// PasswordSymbols is the set of non-alphanumeric characters a password may contain.
const PasswordSymbols = "@$!%*?&#^()_+"

const minPasswordLength = 8

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Username reports whether s is non-empty and uses only letters, digits, dots, or underscores.
func Username(s string) bool {
	return usernamePattern.MatchString(s)
}

// Password reports whether s is at least 8 characters, mixes a letter, a digit, and a
// symbol from PasswordSymbols, and contains nothing outside those classes.
func Password(s string) bool {
	if len(s) < minPasswordLength {
		return false
	}

	var letter, digit, symbol bool
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return letter && digit && symbol
}

// Email reports whether s has the local@domain.tld shape with no whitespace.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Func is a field predicate.
type Func func(string) bool
