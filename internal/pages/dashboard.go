package pages

import (
	"context"
	"fmt"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
)

const dashboardHelp = "Available commands: compose, inbox, sent, starred, trash, archive, and logout."

var (
	pausePhrases  = []string{"stop listening", "stop voice", "turn off voice"}
	resumePhrases = []string{"start listening", "resume voice"}
)

func (s *Site) dashboardConfig(ctx context.Context, carried string) dialogue.LoopConfig {
	email := s.signedIn(ctx, carried)
	user := s.username(ctx)
	if user == "" {
		user = "User"
	}

	say := func(message string) dialogue.Action {
		return func(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
			return dialogue.Outcome{Message: message}, nil
		}
	}

	return dialogue.LoopConfig{
		Name:     string(Dashboard),
		Greeting: fmt.Sprintf("Welcome %s. Please say a command like compose, inbox, sent, or logout.", user),
		Fallback: "Sorry, I didn't understand that. Say 'Help' for available commands.",
		Commands: dialogue.CommandTable{
			{Name: "compose", Phrases: []string{"compose", "write", "new email"}, Action: func(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
				return dialogue.Outcome{Message: "Opening Compose...", Next: Compose, Carry: carryEmail(email)}, nil
			}},
			{Name: "inbox", Phrases: []string{"inbox"}, Action: s.folderAction(email, mailbox.FolderInbox, "Opening Inbox...")},
			{Name: "sent", Phrases: []string{"sent"}, Action: s.folderAction(email, mailbox.FolderSent, "Opening Sent Mail...")},
			{Name: "starred", Phrases: []string{"starred"}, Action: say("Opening Starred...")},
			{Name: "trash", Phrases: []string{"trash"}, Action: say("Opening Trash...")},
			{Name: "archive", Phrases: []string{"archive"}, Action: say("Opening Archive...")},
			{Name: "logout", Phrases: []string{"logout", "log out", "sign out"}, Action: func(context.Context, *dialogue.Loop, string) (dialogue.Outcome, error) {
				return dialogue.Outcome{Message: "Logging out. Goodbye!", Next: Welcome}, nil
			}},
			{Name: "help", Phrases: []string{"help", "commands", "what can i say"}, Action: say(dashboardHelp)},
		},
		PausePhrases:  pausePhrases,
		ResumePhrases: resumePhrases,
		PauseMessage:  "Voice input stopped. Say 'Start listening' to resume.",
		ResumeMessage: "Voice input resumed.",
	}
}

// folderAction opens a folder and reads out how many messages it holds.
func (s *Site) folderAction(email string, folder mailbox.Folder, opening string) dialogue.Action {
	return func(ctx context.Context, _ *dialogue.Loop, _ string) (dialogue.Outcome, error) {
		if email == "" || s.deps.Mailbox == nil {
			return dialogue.Outcome{Message: opening}, nil
		}
		n, err := s.deps.Mailbox.Count(ctx, email, folder)
		if err != nil {
			return dialogue.Outcome{}, fmt.Errorf("count messages: %w", err)
		}
		return dialogue.Outcome{Message: opening + " " + countMessage(n, folder)}, nil
	}
}

func countMessage(n int, folder mailbox.Folder) string {
	noun := "messages"
	if n == 1 {
		noun = "message"
	}
	if folder == mailbox.FolderSent {
		return fmt.Sprintf("You have sent %d %s.", n, noun)
	}
	return fmt.Sprintf("You have %d %s.", n, noun)
}
