// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `voicemail version`. Binaries
// built by `go install` without ldflags report their module version.
func String() string {
	return fmt.Sprintf("voicemail %s (commit=%s, date=%s, go=%s)", resolved(), Commit, Date, runtime.Version())
}

func resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}
