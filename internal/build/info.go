// Package build carries version metadata injected at link time.
package build

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags, e.g.
// -X github.com/shaharia-lab/formrelay/internal/build.Version=v1.2.0
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("formrelay %s (commit %s, built %s, %s)", Version, CommitSHA, BuildDate, runtime.Version())
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "formrelay/" + Version
}
