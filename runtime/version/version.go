// Package version executes and returns the version string
// for the currently running process.
package version

import (
	"fmt"
	"runtime"
	"time"
)

// The value of these vars are set through linker options.
var gitCommit = "Local build"
var buildDate = "Moments ago"
var gitTag = "Unknown"

// Version returns the version string of this build.
func Version() string {
	if buildDate == "{DATE}" {
		now := time.Now().Format(time.RFC3339)
		buildDate = now
	}
	return fmt.Sprintf("%s. Built at: %s with %s", BuildData(), buildDate, runtime.Version())
}

// BuildData returns the git tag and commit of the current build.
func BuildData() string {
	if gitCommit == "{STABLE_GIT_COMMIT}" {
		gitCommit = "unknown"
	}
	return fmt.Sprintf("liftcast/%s/%s", gitTag, gitCommit)
}
