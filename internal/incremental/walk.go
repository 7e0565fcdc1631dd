package incremental

import (
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

// dirHasNewerThan reports whether any file under dir was modified strictly
// after cutoff. The walk uses an explicit stack rather than recursion so
// arbitrarily deep trees (node_modules) cannot exhaust the call stack, and
// returns on the first qualifying file. A missing dir is excluded from the
// check.
func dirHasNewerThan(dir string, cutoff time.Time) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.FilesystemError("stat watched directory", err)
	}
	if !info.IsDir() {
		return false, nil
	}

	stack := []string{dir}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(current)
		if err != nil {
			return false, errors.FilesystemError("read watched directory", err)
		}

		for _, entry := range entries {
			path := filepath.Join(current, entry.Name())
			if entry.IsDir() {
				stack = append(stack, path)
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return false, errors.FilesystemError("stat watched file", err)
			}
			if info.ModTime().After(cutoff) {
				return true, nil
			}
		}
	}

	return false, nil
}
