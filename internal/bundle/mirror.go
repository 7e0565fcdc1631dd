package bundle

import (
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// Mirror makes dst an exact copy of the src directory tree: changed and
// missing entries are copied over, entries present only in dst are removed.
// File modes and modification times are preserved so repeated mirrors of an
// unchanged tree are cheap no-ops.
func Mirror(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.FilesystemError("stat mirror source", err)
	}
	if !info.IsDir() {
		return errors.New(errors.CategoryFileSystem, errors.SeverityFatal,
			"mirror source is not a directory: "+src)
	}

	if err := os.MkdirAll(dst, workspace.DirMode); err != nil {
		return errors.FilesystemError("create mirror destination", err)
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return pruneTree(src, dst)
}

// copyTree copies src into dst, descending with an explicit stack.
func copyTree(src, dst string) error {
	type pair struct{ from, to string }
	stack := []pair{{src, dst}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(cur.from)
		if err != nil {
			return errors.FilesystemError("read mirror source directory", err)
		}
		for _, entry := range entries {
			from := filepath.Join(cur.from, entry.Name())
			to := filepath.Join(cur.to, entry.Name())

			switch {
			case entry.Type()&os.ModeSymlink != 0:
				if err := copySymlink(from, to); err != nil {
					return err
				}
			case entry.IsDir():
				if err := os.MkdirAll(to, workspace.DirMode); err != nil {
					return errors.FilesystemError("create mirror directory", err)
				}
				stack = append(stack, pair{from, to})
			default:
				if err := copyFileIfChanged(from, to); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// pruneTree removes every entry under dst that has no counterpart in src.
func pruneTree(src, dst string) error {
	stack := []string{""}

	for len(stack) > 0 {
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(dst, rel))
		if err != nil {
			return errors.FilesystemError("read mirror destination directory", err)
		}
		for _, entry := range entries {
			entryRel := filepath.Join(rel, entry.Name())
			if _, err := os.Lstat(filepath.Join(src, entryRel)); os.IsNotExist(err) {
				if err := os.RemoveAll(filepath.Join(dst, entryRel)); err != nil {
					return errors.FilesystemError("remove stale mirror entry", err)
				}
				continue
			} else if err != nil {
				return errors.FilesystemError("stat mirror source entry", err)
			}
			if entry.IsDir() {
				stack = append(stack, entryRel)
			}
		}
	}
	return nil
}

// copyFileIfChanged copies a regular file unless the destination already
// matches its size and modification time.
func copyFileIfChanged(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.FilesystemError("stat mirror source file", err)
	}
	if dstInfo, err := os.Stat(dst); err == nil &&
		dstInfo.Mode().IsRegular() &&
		dstInfo.Size() == srcInfo.Size() &&
		dstInfo.ModTime().Equal(srcInfo.ModTime()) {
		return nil
	}

	// A directory or symlink in the way has to go before the file lands.
	if err := os.RemoveAll(dst); err != nil {
		return errors.FilesystemError("replace mirror destination entry", err)
	}
	if err := copyFileContents(src, dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return errors.FilesystemError("preserve mirror timestamps", err)
	}
	return nil
}

func copyFileContents(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.FilesystemError("open mirror source file", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.FilesystemError("create mirror destination file", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.FilesystemError("copy mirror file contents", err)
	}
	if err := out.Close(); err != nil {
		return errors.FilesystemError("flush mirror destination file", err)
	}
	// Ensure the perm sticks even when the file pre-existed with another mode.
	if err := os.Chmod(dst, perm); err != nil {
		return errors.FilesystemError("set mirror file mode", err)
	}
	return nil
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return errors.FilesystemError("read mirror symlink", err)
	}
	if existing, err := os.Readlink(dst); err == nil && existing == target {
		return nil
	}
	if err := os.RemoveAll(dst); err != nil {
		return errors.FilesystemError("replace mirror destination entry", err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return errors.FilesystemError("create mirror symlink", err)
	}
	return nil
}
