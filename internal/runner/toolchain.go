package runner

import (
	"log/slog"
	"os/exec"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

// Require fails fast when a required external tool is not on PATH. The
// install hint is carried in the error so the user sees how to fix the
// environment.
func Require(tool, installHint string) error {
	path, err := exec.LookPath(tool)
	if err != nil {
		return errors.ToolchainMissing(tool, installHint)
	}
	slog.Debug("Found required tool", "tool", tool, "path", path)
	return nil
}

// WarnIfMissing logs when an optional tool is absent. Icon compilation
// degrades gracefully without sips/iconutil, so absence is never fatal.
func WarnIfMissing(tool string) {
	if _, err := exec.LookPath(tool); err != nil {
		slog.Debug("Optional tool not found", "tool", tool)
	}
}
