package pages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
	"github.com/LokeshkumarVD/Voice-email-system/internal/spoken"
	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
)

const composeHelp = "Welcome to Voice Email Compose. Available commands: " +
	"'Add recipient' to add an email address. " +
	"'Subject' to set email subject. " +
	"'Message' to compose email body. " +
	"'Send email' when ready to send. " +
	"'Discard email' to clear the email. " +
	"'Stop listening' to pause voice input. " +
	"'Start listening' to resume voice input. " +
	"'Help' to repeat these commands."

const previewLength = 50

var (
	recipientPattern = regexp.MustCompile(`(?i)^(add recipient|to|recipient|send to)\b`)
	subjectPattern   = regexp.MustCompile(`(?i)^(subject|title|email subject)\b`)
	messagePattern   = regexp.MustCompile(`(?i)^(message|body|email body|content)\b`)
	sendPattern      = regexp.MustCompile(`(?i)^(send|send email|dispatch|mail it)\b`)
	discardPattern   = regexp.MustCompile(`(?i)^(discard|clear|delete email)\b`)
	helpPattern      = regexp.MustCompile(`(?i)^(help|commands|what can i say)\b`)
	reviewPattern    = regexp.MustCompile(`(?i)^(read back|review|read draft)\b`)
	backPattern      = regexp.MustCompile(`(?i)^(back to dashboard|go back|dashboard)\b`)

	// Anchored so dictated text like "message stop listening to music" stays text.
	composePausePattern  = regexp.MustCompile(`(?i)^(stop listening|stop voice|turn off voice)\b`)
	composeResumePattern = regexp.MustCompile(`(?i)^(start listening|resume voice)\b`)
)

var (
	sendVocabulary = spoken.Vocabulary{
		Affirmative: []string{"confirm", "confirm send", "yes", "send"},
		Negative:    []string{"cancel", "no", "abort"},
	}
	discardVocabulary = spoken.Vocabulary{
		Affirmative: []string{"confirm", "yes", "discard"},
		Negative:    []string{"cancel", "no", "keep"},
	}
)

type draft struct {
	to      string
	subject string
	body    string
}

func (d draft) empty() bool {
	return d.to == "" && d.subject == "" && d.body == ""
}

// composer holds one compose page visit's draft.
type composer struct {
	site  *Site
	from  string
	draft draft
}

func (s *Site) composeConfig(ctx context.Context, carried string) dialogue.LoopConfig {
	c := &composer{site: s, from: s.signedIn(ctx, carried)}

	return dialogue.LoopConfig{
		Name:     string(Compose),
		Greeting: composeHelp + " I'm listening for your commands",
		Fallback: "Sorry, I didn't understand that. Say 'Help' for available commands.",
		Commands: dialogue.CommandTable{
			{Name: "recipient", Pattern: recipientPattern, Action: c.recipient},
			{Name: "subject", Pattern: subjectPattern, Action: c.subject},
			{Name: "message", Pattern: messagePattern, Action: c.message},
			{Name: "send", Pattern: sendPattern, Action: c.send},
			{Name: "discard", Pattern: discardPattern, Action: c.discard},
			{Name: "help", Pattern: helpPattern, Action: func(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
				return dialogue.Outcome{Message: composeHelp}, nil
			}},
			{Name: "review", Pattern: reviewPattern, Action: c.review},
			{Name: "back", Pattern: backPattern, Action: func(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
				return dialogue.Outcome{Message: "Returning to dashboard.", Next: Dashboard, Carry: carryEmail(c.from)}, nil
			}},
		},
		PausePattern:  composePausePattern,
		ResumePattern: composeResumePattern,
		PauseMessage:  "Voice input stopped. Say 'Start listening' to resume.",
		ResumeMessage: "Voice input resumed. I'm listening for your commands",
	}
}

// inline returns what was said after the command keyword, so "subject lunch
// plans" sets the subject without a second prompt.
func inline(pattern *regexp.Regexp, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	loc := pattern.FindStringIndex(transcript)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(transcript[loc[1]:])
}

func sentence(transcript string) string {
	return spoken.Normalize(transcript, spoken.Options{Mode: spoken.ModeFreeText, CapitalizeSentences: true})
}

func (c *composer) recipient(ctx context.Context, l *dialogue.Loop, transcript string) (dialogue.Outcome, error) {
	if rest := inline(recipientPattern, transcript); rest != "" {
		if addr := spoken.Email(rest); validate.Email(addr) {
			c.draft.to = addr
			return dialogue.Outcome{Message: "Added to recipient: " + addr}, nil
		}
	}
	addr, ok, err := l.Dictate(ctx, dialogue.Step{
		ID:        "to",
		Prompt:    "Please say the recipient's email address",
		Normalize: spoken.Email,
		Validate:  validate.Email,
		Invalid:   invalidEmail,
	})
	if err != nil || !ok {
		return dialogue.Outcome{}, err
	}
	c.draft.to = addr
	return dialogue.Outcome{Message: "Added to recipient: " + addr}, nil
}

func (c *composer) subject(ctx context.Context, l *dialogue.Loop, transcript string) (dialogue.Outcome, error) {
	text := sentence(inline(subjectPattern, transcript))
	if text == "" {
		var ok bool
		var err error
		text, ok, err = l.Dictate(ctx, dialogue.Step{
			ID:        "subject",
			Prompt:    "Please say the subject of your email",
			Normalize: sentence,
			Validate:  nonEmpty,
			Invalid:   "Please say the subject of your email",
		})
		if err != nil || !ok {
			return dialogue.Outcome{}, err
		}
	}
	c.draft.subject = text
	return dialogue.Outcome{Message: "Added to subject"}, nil
}

// message appends to the body; repeated dictation builds it up sentence by sentence.
func (c *composer) message(ctx context.Context, l *dialogue.Loop, transcript string) (dialogue.Outcome, error) {
	text := sentence(inline(messagePattern, transcript))
	if text == "" {
		var ok bool
		var err error
		text, ok, err = l.Dictate(ctx, dialogue.Step{
			ID:        "body",
			Prompt:    "Please dictate your message",
			Normalize: sentence,
			Validate:  nonEmpty,
			Invalid:   "Please dictate your message",
		})
		if err != nil || !ok {
			return dialogue.Outcome{}, err
		}
	}
	switch {
	case c.draft.body == "":
		c.draft.body = text
	case strings.HasSuffix(c.draft.body, ".") || strings.HasSuffix(c.draft.body, "!") || strings.HasSuffix(c.draft.body, "?"):
		c.draft.body += " " + text
	default:
		c.draft.body += ". " + text
	}
	return dialogue.Outcome{Message: "Added to message"}, nil
}

func (c *composer) send(ctx context.Context, l *dialogue.Loop, _ string) (dialogue.Outcome, error) {
	d := c.draft
	switch {
	case d.to == "":
		return dialogue.Outcome{Message: "Please add at least one recipient before sending"}, nil
	case !validate.Email(d.to):
		return dialogue.Outcome{Message: "The recipient email address is not valid. Please correct it before sending."}, nil
	case d.subject == "":
		return dialogue.Outcome{Message: "Please add a subject before sending"}, nil
	case d.body == "":
		return dialogue.Outcome{Message: "Please dictate a message before sending"}, nil
	case c.from == "":
		return dialogue.Outcome{Message: "Please sign in before sending email."}, nil
	}

	question := fmt.Sprintf(
		"Confirm sending email to %s with subject %q? Message starts with: %q. Say 'Confirm send' to proceed or 'Cancel' to abort",
		d.to, d.subject, preview(d.body),
	)
	yes, err := l.Confirm(ctx, question, sendVocabulary)
	if err != nil {
		return dialogue.Outcome{}, err
	}
	if !yes {
		return dialogue.Outcome{Message: "Email sending cancelled"}, nil
	}

	if err := l.Say(ctx, fmt.Sprintf("Sending email to %s...", d.to)); err != nil {
		return dialogue.Outcome{}, err
	}
	msg, err := c.site.deps.Postman.Post(ctx, c.from, mailbox.Draft{To: d.to, Subject: d.subject, Body: d.body})
	if err != nil {
		c.site.logger.Warn("send failed", "message_id", msg.ID, "error", err.Error())
		l.Feedback(ctx, "Send failed: "+err.Error())
		return dialogue.Outcome{Message: "Failed to send email. Please try again."}, nil
	}
	c.draft = draft{}
	return dialogue.Outcome{Message: "Email sent successfully to " + d.to}, nil
}

func (c *composer) discard(ctx context.Context, l *dialogue.Loop, _ string) (dialogue.Outcome, error) {
	if c.draft.empty() {
		return dialogue.Outcome{Message: "There's nothing to discard"}, nil
	}
	yes, err := l.Confirm(ctx, "Are you sure you want to discard this email? Say 'Confirm' to proceed or 'Cancel' to abort", discardVocabulary)
	if err != nil {
		return dialogue.Outcome{}, err
	}
	if !yes {
		return dialogue.Outcome{Message: "Discard cancelled"}, nil
	}
	c.draft = draft{}
	return dialogue.Outcome{Message: "Email discarded"}, nil
}

func (c *composer) review(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
	d := c.draft
	if d.empty() {
		return dialogue.Outcome{Message: "Your email is empty."}, nil
	}
	var parts []string
	if d.to != "" {
		parts = append(parts, "To "+d.to+".")
	}
	if d.subject != "" {
		parts = append(parts, "Subject: "+d.subject+".")
	}
	if d.body != "" {
		parts = append(parts, "Message: "+d.body)
	}
	return dialogue.Outcome{Message: strings.Join(parts, " ")}, nil
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "..."
}
