// Package version exposes build-time version information.
package version

import "strings"

// Set via ldflags during release builds.
var (
	version   = ""
	gitCommit = ""
)

// String returns a human-readable version string. Local builds without
// ldflags report "(local)".
func String() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return "(local)"
	}
	v = strings.TrimPrefix(v, "v")
	if c := strings.TrimSpace(gitCommit); c != "" {
		return v + " (" + c + ")"
	}
	return v
}
