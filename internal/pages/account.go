package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
)

const (
	invalidUsername = "Invalid username. Use only letters, numbers, dots or underscores."
	weakPassword    = "Weak password. Use at least 8 characters with letters, numbers, and symbols."
	invalidEmail    = "That doesn't appear to be a valid email address. Please try again."
)

var forgotPhrases = []string{"forgot password", "forgot my password", "reset password", "reset my password"}

func nonEmpty(v string) bool { return strings.TrimSpace(v) != "" }

// properName capitalizes each word of a spoken name.
func properName(transcript string) string {
	words := strings.Fields(spoken.FreeText(transcript))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

func emailStep(id string, prompt string) dialogue.Step {
	return dialogue.Step{
		ID:        id,
		Prompt:    prompt,
		Normalize: spoken.Email,
		Validate:  validate.Email,
		Invalid:   invalidEmail,
	}
}

func forgotEscape(transcript string) (dialogue.Outcome, bool) {
	if !spoken.ContainsAny(transcript, forgotPhrases...) {
		return dialogue.Outcome{}, false
	}
	return dialogue.Outcome{Message: "Opening forgot password.", Next: Forgot}, true
}

func mismatch(first string, second string, message string, stepID string) func(*dialogue.Values) error {
	return func(v *dialogue.Values) error {
		if v.Value(first) != v.Value(second) {
			return &dialogue.Correction{Message: message, StepID: stepID}
		}
		return nil
	}
}

func (s *Site) signupFlow() dialogue.Flow {
	return dialogue.Flow{
		Name: string(Signup),
		Steps: []dialogue.Step{
			{ID: "firstName", Prompt: "Please say your first name", Normalize: properName, Validate: nonEmpty, Invalid: "Please say your first name again."},
			{ID: "lastName", Prompt: "Please say your last name", Normalize: properName, Validate: nonEmpty, Invalid: "Please say your last name again."},
			{ID: "username", Prompt: "Please say your desired email username", Normalize: spoken.Compact, Validate: validate.Username, Invalid: invalidUsername},
			{ID: "password", Prompt: "Please say your password", Normalize: spoken.Compact, Validate: validate.Password, Invalid: weakPassword, Mask: true},
			{ID: "confirmPassword", Prompt: "Please confirm your password", Normalize: spoken.Compact, Mask: true},
		},
		Check: mismatch("password", "confirmPassword", "Passwords do not match. Please repeat your password.", "password"),
		Summary: func(v *dialogue.Values) string {
			return fmt.Sprintf(
				"You said: Your name is %s %s. Your username is %s. Your password has been saved. Do you want to continue? Please say yes or no.",
				v.Value("firstName"), v.Value("lastName"), v.Value("username"),
			)
		},
		Messages: dialogue.Messages{Restart: "Okay, let's start again."},
		Execute: func(ctx context.Context, v *dialogue.Values) (dialogue.Outcome, error) {
			account, err := s.deps.Mailbox.CreateAccount(ctx, mailbox.Registration{
				FirstName: v.Value("firstName"),
				LastName:  v.Value("lastName"),
				Username:  v.Value("username"),
				Password:  v.Value("password"),
				Domain:    s.deps.Domain,
			})
			if errors.Is(err, mailbox.ErrUsernameTaken) {
				return dialogue.Outcome{}, &dialogue.Correction{
					Message: "That username is already taken. Please choose another one.",
					StepID:  "username",
				}
			}
			if err != nil {
				return dialogue.Outcome{}, fmt.Errorf("create account: %w", err)
			}

			s.rememberUsername(ctx, account.Username)
			return dialogue.Outcome{
				Message: fmt.Sprintf("Thank you %s. Your account with email %s has been created. Redirecting to dashboard.", account.FirstName, account.Email),
				Next:    Dashboard,
				Carry:   carryEmail(account.Email),
			}, nil
		},
	}
}

func (s *Site) loginFlow() dialogue.Flow {
	email := emailStep("email", "Please say your email address")
	email.Escape = forgotEscape

	return dialogue.Flow{
		Name: string(Login),
		Steps: []dialogue.Step{
			email,
			{ID: "password", Prompt: "Now please say your password", Normalize: spoken.Compact, Validate: nonEmpty, Mask: true, Escape: forgotEscape},
		},
		Summary: func(v *dialogue.Values) string {
			return fmt.Sprintf("You said your email is %s. Do you want to continue? Say yes or no.", v.Value("email"))
		},
		Messages: dialogue.Messages{Restart: "Okay, let's try again"},
		Execute: func(ctx context.Context, v *dialogue.Values) (dialogue.Outcome, error) {
			account, err := s.deps.Mailbox.Authenticate(ctx, v.Value("email"), v.Value("password"))
			if errors.Is(err, mailbox.ErrInvalidCredentials) {
				return dialogue.Outcome{}, &dialogue.Correction{
					Message: "The email or password is incorrect. Please try again.",
					StepID:  "email",
				}
			}
			if err != nil {
				return dialogue.Outcome{}, fmt.Errorf("sign in: %w", err)
			}

			s.rememberUsername(ctx, account.Username)
			return dialogue.Outcome{
				Message: "Logging you in now",
				Next:    Dashboard,
				Carry:   carryEmail(account.Email),
			}, nil
		},
	}
}

func (s *Site) forgotFlow() dialogue.Flow {
	return dialogue.Flow{
		Name: string(Forgot),
		Steps: []dialogue.Step{
			emailStep("email", "You selected forgot password. Please say your registered email."),
		},
		Summary: func(v *dialogue.Values) string {
			return fmt.Sprintf("You said %s. Say yes to continue or no to retry.", v.Value("email"))
		},
		Messages: dialogue.Messages{Restart: "Okay, let's try again."},
		Execute: func(ctx context.Context, v *dialogue.Values) (dialogue.Outcome, error) {
			account, err := s.deps.Mailbox.Account(ctx, v.Value("email"))
			if errors.Is(err, mailbox.ErrAccountNotFound) {
				return dialogue.Outcome{}, &dialogue.Correction{
					Message: "No account is registered with that email.",
					StepID:  "email",
				}
			}
			if err != nil {
				return dialogue.Outcome{}, fmt.Errorf("look up account: %w", err)
			}
			return dialogue.Outcome{
				Message: "Account found. Let's choose a new password.",
				Next:    Reset,
				Carry:   carryEmail(account.Email),
			}, nil
		},
	}
}

// resetFlow sets a new password for email. When no address was carried over
// from the forgot page it is asked for first.
func (s *Site) resetFlow(email string) dialogue.Flow {
	var steps []dialogue.Step
	if email == "" {
		steps = append(steps, emailStep("email", "Please say your registered email."))
	}
	steps = append(steps,
		dialogue.Step{ID: "newPassword", Prompt: "Please say your new password.", Normalize: spoken.Compact, Validate: validate.Password, Invalid: weakPassword, Mask: true},
		dialogue.Step{ID: "confirmPassword", Prompt: "Please confirm your new password.", Normalize: spoken.Compact, Mask: true},
	)

	return dialogue.Flow{
		Name:        string(Reset),
		Steps:       steps,
		SkipConfirm: true,
		Check:       mismatch("newPassword", "confirmPassword", "Passwords did not match. Let's try again.", "newPassword"),
		Execute: func(ctx context.Context, v *dialogue.Values) (dialogue.Outcome, error) {
			address := email
			if address == "" {
				address = v.Value("email")
			}
			err := s.deps.Mailbox.ResetPassword(ctx, address, v.Value("newPassword"))
			if errors.Is(err, mailbox.ErrAccountNotFound) && email == "" {
				return dialogue.Outcome{}, &dialogue.Correction{
					Message: "No account is registered with that email.",
					StepID:  "email",
				}
			}
			if err != nil {
				return dialogue.Outcome{}, fmt.Errorf("reset password: %w", err)
			}
			return dialogue.Outcome{
				Message: "Password reset successful. Redirecting to login page.",
				Next:    Login,
			}, nil
		},
	}
}
