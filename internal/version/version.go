package version

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

var (
	nameColor    = color.New(color.FgGreen, color.Bold)
	versionColor = color.New(color.FgYellow, color.Bold)
)

// String renders the build information on one line. Colour is dropped
// automatically when stdout is not a terminal.
func String() string {
	return fmt.Sprintf("%s %s (git %s, built %s)",
		nameColor.Sprint("paddy"), versionColor.Sprint(Version), GitSHA, BuildTime)
}
