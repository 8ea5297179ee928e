package pages

import (
	"context"
	"fmt"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
)

const (
	choiceSignUp = "Sign Up"
	choiceSignIn = "Sign In"
)

var (
	signUpPhrases = []string{"sign up", "signup", "register", "new user", "new account"}
	signInPhrases = []string{"sign in", "signin", "log in", "login", "existing account"}
)

// choiceOf maps a welcome answer to a choice, or "" when it names neither.
func choiceOf(transcript string) string {
	up := spoken.ContainsAny(transcript, signUpPhrases...)
	in := spoken.ContainsAny(transcript, signInPhrases...)
	switch {
	case up && !in:
		return choiceSignUp
	case in && !up:
		return choiceSignIn
	default:
		return ""
	}
}

func (s *Site) welcomeFlow() dialogue.Flow {
	return dialogue.Flow{
		Name:     string(Welcome),
		Greeting: "Welcome to The Talking Mailbox. Let Your Voice Be Heard, Let Your Mail Be Seen.",
		Steps: []dialogue.Step{{
			ID:        "choice",
			Prompt:    "Please say 'Sign Up' if you are a new user, or 'Sign In' if you have an existing account.",
			Normalize: choiceOf,
			Validate:  func(v string) bool { return v != "" },
			Invalid:   "I didn't understand. Please say 'Sign Up' or 'Sign In'.",
			NoInput:   "I didn't hear you. Please say 'Sign Up' or 'Sign In'.",
			Timeout:   s.deps.ChoiceTimeout,
		}},
		Summary: func(v *dialogue.Values) string {
			return fmt.Sprintf("You have chosen to %s. Is this correct? Please say 'Yes' or 'No'.", v.Value("choice"))
		},
		Messages: dialogue.Messages{
			Restart: "Please choose again.",
		},
		Execute: func(_ context.Context, v *dialogue.Values) (dialogue.Outcome, error) {
			choice := v.Value("choice")
			next := Login
			if choice == choiceSignUp {
				next = Signup
			}
			return dialogue.Outcome{
				Message: fmt.Sprintf("Redirecting to %s page.", choice),
				Next:    next,
			}, nil
		},
	}
}
