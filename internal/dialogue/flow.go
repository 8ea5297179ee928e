// Package dialogue drives spoken turn-taking: linear form flows and command loops.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
)

// Page names a navigation target.
type Page string

// Outcome is what a finished flow or command asks the caller to do next.
type Outcome struct {
	// Message is spoken before the controller returns.
	Message string
	// Next is the page to navigate to. Empty means stay.
	Next Page
	// Carry passes values to the next page, e.g. a verified email address.
	Carry map[string]string
}

// Step collects one field.
type Step struct {
	ID     string
	Prompt string
	// Normalize rewrites the transcript before validation. Nil uses spoken.FreeText.
	Normalize func(string) string
	Validate  validate.Func
	// Invalid is spoken when Validate rejects the value.
	Invalid string
	// NoInput overrides the controller's recognition-failure message for this step.
	NoInput string
	// Mask hides the value on the status display.
	Mask bool
	// Timeout overrides the adapter's default listen timeout.
	Timeout time.Duration
	// Escape inspects the raw transcript before normalization and may end the flow.
	Escape func(transcript string) (Outcome, bool)
}

func (s Step) normalize(transcript string) string {
	if s.Normalize != nil {
		return s.Normalize(transcript)
	}
	return spoken.FreeText(transcript)
}

func (s Step) display(value string) string {
	if s.Mask {
		return strings.Repeat("*", utf8.RuneCountInString(value))
	}
	return value
}

// Flow is a linear sequence of steps followed by an optional confirmation and an action.
type Flow struct {
	Name     string
	Greeting string
	Steps    []Step
	// Summary is spoken on entering confirmation. Nil uses DefaultSummary.
	Summary func(*Values) string
	// SkipConfirm executes right after the last step.
	SkipConfirm bool
	// Check runs after the last step. A *Correction re-enters the flow at a step.
	Check func(*Values) error
	// Execute performs the flow's side effect.
	Execute func(context.Context, *Values) (Outcome, error)
	// Messages overrides the controller defaults for this flow.
	Messages Messages
}

func (f Flow) stepIndex(id string) int {
	for i, step := range f.Steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

// DefaultSummary reads back every collected value in collection order, then asks for a yes or no.
func DefaultSummary(steps []Step) func(*Values) string {
	return func(values *Values) string {
		var b strings.Builder
		b.WriteString("You said ")
		for i, field := range values.Fields() {
			if i > 0 {
				b.WriteString(", ")
			}
			value := field.Value
			for _, step := range steps {
				if step.ID == field.ID && step.Mask {
					value = "hidden"
				}
			}
			fmt.Fprintf(&b, "%s %s", field.ID, value)
		}
		b.WriteString(". Is this correct? Please say yes or no.")
		return b.String()
	}
}

// Correction sends the flow back to StepID after speaking Message. Values from that
// step onward are cleared.
type Correction struct {
	Message string
	StepID  string
}

func (c *Correction) Error() string {
	return fmt.Sprintf("correction at %s: %s", c.StepID, c.Message)
}

// Messages are the controller's fixed spoken responses.
type Messages struct {
	// NoInput follows a recognition failure.
	NoInput string
	// Unclear follows a confirmation reply that is neither yes nor no.
	Unclear string
	// Restart follows a negative confirmation.
	Restart string
}

// DefaultMessages are used where a flow leaves a message empty.
var DefaultMessages = Messages{
	NoInput: "Sorry, I didn't catch that. Please try again.",
	Unclear: "I didn't understand. Please say yes or no.",
	Restart: "Okay, let's start again.",
}

func (m Messages) merge(fallback Messages) Messages {
	if m.NoInput == "" {
		m.NoInput = fallback.NoInput
	}
	if m.Unclear == "" {
		m.Unclear = fallback.Unclear
	}
	if m.Restart == "" {
		m.Restart = fallback.Restart
	}
	return m
}
