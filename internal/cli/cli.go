package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandWelcome   Command = "welcome"
	CommandSignup    Command = "signup"
	CommandLogin     Command = "login"
	CommandDashboard Command = "dashboard"
	CommandCompose   Command = "compose"
	CommandStatus    Command = "status"
	CommandPause     Command = "pause"
	CommandResume    Command = "resume"
	CommandStop      Command = "stop"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandWelcome:   {},
	CommandSignup:    {},
	CommandLogin:     {},
	CommandDashboard: {},
	CommandCompose:   {},
	CommandStatus:    {},
	CommandPause:     {},
	CommandResume:    {},
	CommandStop:      {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// IsPage reports whether cmd starts a dialogue page.
func (c Command) IsPage() bool {
	switch c {
	case CommandWelcome, CommandSignup, CommandLogin, CommandDashboard, CommandCompose:
		return true
	default:
		return false
	}
}

// IsControl reports whether cmd is forwarded to a running instance.
func (c Command) IsControl() bool {
	switch c {
	case CommandStatus, CommandPause, CommandResume, CommandStop:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	// Console forces the terminal speech backend regardless of config.
	Console  bool
	ShowHelp bool
}

// Parse reads flags and at most one command. With no command the welcome page runs.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandWelcome}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case arg == "--version":
			parsed.Command = CommandVersion
		case arg == "--console":
			parsed.Console = true
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			if parsed.ConfigPath == "" {
				return Parsed{}, errors.New("--config requires a path")
			}
		case strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			cmd := Command(strings.ToLower(arg))
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--console] [command]

Pages:
  welcome    Start at the welcome page (default)
  signup     Create an account by voice
  login      Sign in by voice
  dashboard  Open the mailbox dashboard
  compose    Compose an email by voice

Control:
  status     Print the running page and dialogue state
  pause      Pause voice input of the running page
  resume     Resume voice input of the running page
  stop       Stop the running page

Other:
  doctor     Run configuration and environment checks
  version    Print version information
  help       Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voicemail/config.jsonc)
  --console       Type instead of speaking; replies are printed
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
