// Package ipc carries control commands between the CLI and the running page owner
// over a unix socket, one JSON line per request and response.
package ipc

import (
	"slices"
	"strings"
)

// Control commands understood by the running page owner.
const (
	CommandStatus = "status"
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandStop   = "stop"
)

var controlCommands = []string{CommandStatus, CommandPause, CommandResume, CommandStop}

// Request is one control command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the owner's dialogue state after handling a command.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Page    string `json:"page,omitempty"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsControlCommand reports whether name is a forwardable command.
func IsControlCommand(name string) bool {
	return slices.Contains(controlCommands, normalizeCommand(name))
}

func normalizeCommand(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Unknown builds the standard rejection for unsupported commands.
func Unknown(command string) Response {
	return Response{OK: false, Error: "unknown command: " + command}
}
