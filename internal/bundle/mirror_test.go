package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMirrorCopiesTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	writeFile(t, filepath.Join(src, "index.html"), "<html>")
	writeFile(t, filepath.Join(src, "assets", "app.js"), "console.log(1)")
	writeFile(t, filepath.Join(src, "assets", "deep", "style.css"), "body{}")

	require.NoError(t, Mirror(src, dst))

	for _, rel := range []string{"index.html", "assets/app.js", "assets/deep/style.css"} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		require.NoError(t, err)
		require.Equal(t, want, got, rel)
	}
}

func TestMirrorDeletesDestinationOnlyEntries(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "keep.txt"), "keep")
	writeFile(t, filepath.Join(dst, "keep.txt"), "stale contents")
	writeFile(t, filepath.Join(dst, "stale.txt"), "gone")
	writeFile(t, filepath.Join(dst, "stale_dir", "nested.txt"), "gone too")

	require.NoError(t, Mirror(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "keep.txt"))
	require.NoError(t, err)
	require.Equal(t, "keep", string(got))

	_, err = os.Stat(filepath.Join(dst, "stale.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dst, "stale_dir"))
	require.True(t, os.IsNotExist(err))
}

func TestMirrorReplacesFileWithDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "assets", "app.js"), "new")
	// Destination has a plain file where the source has a directory.
	writeFile(t, filepath.Join(dst, "assets"), "i am a file")

	require.NoError(t, Mirror(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "assets", "app.js"))
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestMirrorPreservesSymlinks(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "lib.so.1"), "binary")
	require.NoError(t, os.Symlink("lib.so.1", filepath.Join(src, "lib.so")))

	require.NoError(t, Mirror(src, dst))

	target, err := os.Readlink(filepath.Join(dst, "lib.so"))
	require.NoError(t, err)
	require.Equal(t, "lib.so.1", target)
}

func TestMirrorIsIdempotent(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "a", "b.txt"), "contents")
	require.NoError(t, Mirror(src, dst))

	before, err := os.Stat(filepath.Join(dst, "a", "b.txt"))
	require.NoError(t, err)

	require.NoError(t, Mirror(src, dst))

	after, err := os.Stat(filepath.Join(dst, "a", "b.txt"))
	require.NoError(t, err)
	require.True(t, before.ModTime().Equal(after.ModTime()), "unchanged file must not be rewritten")
}

func TestMirrorRejectsMissingSource(t *testing.T) {
	err := Mirror(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.Error(t, err)
}

func TestMirrorRejectsNonDirectorySource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, src, "not a tree")

	err := Mirror(src, t.TempDir())
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryFileSystem))
	require.Contains(t, err.Error(), src, "error must name the offending path")
}

func TestMirrorReplacesDirectoryWithFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "asset"), "now a file")
	writeFile(t, filepath.Join(dst, "asset", "old.txt"), "was a dir")

	require.NoError(t, Mirror(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "asset"))
	require.NoError(t, err)
	require.Equal(t, "now a file", string(got))
}
