package incremental

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
	"gopkg.in/yaml.v3"
)

// StampTime returns the modification time of a stamp file and whether the
// stamp exists.
func StampTime(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errors.FilesystemError("stat stamp", err)
	}
	return info.ModTime(), true, nil
}

// WriteStamp records that a stage's output is valid as of now. The file
// carries the Unix timestamp for human inspection; freshness comparisons
// use the file's own mtime.
func WriteStamp(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), workspace.DirMode); err != nil {
		return errors.FilesystemError("create stamp directory", err)
	}
	content := fmt.Sprintf("%d\n", time.Now().Unix())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.FilesystemError("write stamp", err)
	}
	return nil
}

// EncodeParams serializes a parameter set into the canonical snapshot form.
// The same encoding is used for recording and for comparison, so equality
// is byte-for-byte.
func EncodeParams(params any) ([]byte, error) {
	data, err := yaml.Marshal(params)
	if err != nil {
		return nil, errors.InternalError("encode parameter snapshot", err)
	}
	return data, nil
}

// WriteParams records the current parameter snapshot next to the stamp.
func WriteParams(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), workspace.DirMode); err != nil {
		return errors.FilesystemError("create snapshot directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FilesystemError("write parameter snapshot", err)
	}
	return nil
}
