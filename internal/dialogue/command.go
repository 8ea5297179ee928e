package dialogue

import (
	"context"
	"regexp"
	"strings"
)

// Action runs when a command matches. transcript is the full recognized text.
type Action func(ctx context.Context, loop *Loop, transcript string) (Outcome, error)

// Command maps spoken phrases to an action.
type Command struct {
	Name string
	// Phrases match as case-insensitive substrings.
	Phrases []string
	// Pattern, when set, is tried before Phrases against the lowercased transcript.
	Pattern *regexp.Regexp
	Action  Action
}

func (c Command) matches(lowered string) bool {
	if c.Pattern != nil && c.Pattern.MatchString(lowered) {
		return true
	}
	for _, phrase := range c.Phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" && strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// CommandTable is an ordered command list. The first match wins.
type CommandTable []Command

// Match returns the first command whose phrase or pattern occurs in transcript.
func (t CommandTable) Match(transcript string) (Command, bool) {
	lowered := strings.ToLower(strings.TrimSpace(transcript))
	if lowered == "" {
		return Command{}, false
	}
	for _, cmd := range t {
		if cmd.matches(lowered) {
			return cmd, true
		}
	}
	return Command{}, false
}

// Names lists command names in table order.
func (t CommandTable) Names() []string {
	names := make([]string, 0, len(t))
	for _, cmd := range t {
		names = append(names, cmd.Name)
	}
	return names
}
