// Package incremental decides whether a build stage's cached output can be
// reused. Staleness is judged against a persisted stamp file: modification
// times of watched inputs, presence of the output artifact, and an optional
// recorded parameter snapshot compared byte-for-byte.
package incremental

import (
	"os"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

// StageSpec declares the cacheable surface of one build stage.
//
// Watched entries that do not exist on disk are excluded from the check
// rather than counted as stale (optional inputs such as lock files).
type StageSpec struct {
	Name string

	OutputDir string // artifact location that must exist for the stage to be fresh
	StampPath string

	WatchFiles []string // individual files compared against the stamp mtime
	WatchDirs  []string // whole subtrees compared against the stamp mtime

	ParamsPath string // recorded parameter snapshot, empty for unparameterized stages
	Params     []byte // current serialized parameters

	Force bool
	Skip  bool
}

// IsStale reports whether the stage must rebuild, with the first matching
// reason. The decision is pure given the current filesystem state.
//
// Comparison is strictly-greater-than on modification time: inputs whose
// mtime equals the stamp's are treated as unchanged. Skip takes precedence
// over Force; a skipped stage is never evaluated.
func IsStale(spec StageSpec) (bool, string, error) {
	if spec.Skip {
		return false, "stage skipped", nil
	}
	if spec.Force {
		return true, "rebuild forced", nil
	}

	if spec.OutputDir != "" {
		info, err := os.Stat(spec.OutputDir)
		if err != nil || !info.IsDir() {
			return true, "output missing", nil
		}
	}

	stampTime, ok, err := StampTime(spec.StampPath)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return true, "stamp missing", nil
	}

	if spec.ParamsPath != "" {
		changed, reason, err := paramsChanged(spec.ParamsPath, spec.Params)
		if err != nil {
			return false, "", err
		}
		if changed {
			return true, reason, nil
		}
	}

	for _, file := range spec.WatchFiles {
		newer, err := fileNewerThan(file, stampTime)
		if err != nil {
			return false, "", err
		}
		if newer {
			return true, "changed: " + file, nil
		}
	}

	for _, dir := range spec.WatchDirs {
		newer, err := dirHasNewerThan(dir, stampTime)
		if err != nil {
			return false, "", err
		}
		if newer {
			return true, "changed under: " + dir, nil
		}
	}

	return false, "", nil
}

// fileNewerThan reports whether file exists and was modified strictly after
// cutoff. Missing files are excluded from the check.
func fileNewerThan(file string, cutoff time.Time) (bool, error) {
	info, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.FilesystemError("stat watched file", err)
	}
	if info.IsDir() {
		return false, nil
	}
	return info.ModTime().After(cutoff), nil
}

// paramsChanged compares the recorded parameter snapshot against the current
// serialized parameters, byte for byte.
func paramsChanged(path string, current []byte) (bool, string, error) {
	recorded, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, "parameter snapshot missing", nil
		}
		return false, "", errors.FilesystemError("read parameter snapshot", err)
	}
	if string(recorded) != string(current) {
		return true, "parameters changed", nil
	}
	return false, "", nil
}
