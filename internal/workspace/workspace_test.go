package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func scaffoldRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{FrontendDirName, BackendDirName, WrapperDirName} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	return root
}

func TestLooksLikeRoot(t *testing.T) {
	root := scaffoldRoot(t)
	require.True(t, looksLikeRoot(root))

	require.NoError(t, os.RemoveAll(filepath.Join(root, BackendDirName)))
	require.False(t, looksLikeRoot(root))

	// A file with the right name does not count.
	require.NoError(t, os.WriteFile(filepath.Join(root, BackendDirName), []byte("x"), 0o644))
	require.False(t, looksLikeRoot(root))
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/repo", "Widget")

	require.Equal(t, "/repo/dist/Widget.app", l.AppBundle)
	require.Equal(t, "/repo/.mac_build/stamps", l.StampsDir)
	require.Equal(t, "/repo/.mac_build/stamps/webapp_build.stamp", l.Stamp("webapp_build.stamp"))
	require.Equal(t, "/repo/.mac_build/backend_dist/backend_server", l.BackendProductDir())
	require.Equal(t, "/repo/webapp/dist", l.FrontendDist())
	require.Equal(t, "/repo/macos-app/.build/release/MacWrapper", l.WrapperBin)
}

func TestPrepareAndClean(t *testing.T) {
	root := scaffoldRoot(t)
	l := NewLayout(root, "Widget")

	require.NoError(t, l.Prepare())
	require.DirExists(t, l.StampsDir)
	require.DirExists(t, l.BackendOut)

	require.NoError(t, os.MkdirAll(l.AppBundle, 0o755))
	require.NoError(t, l.Clean())
	require.NoDirExists(t, l.WorkDir)
	require.NoDirExists(t, l.AppBundle)
	require.DirExists(t, l.OutDir)
}

func TestHeadCommitOutsideGit(t *testing.T) {
	require.Empty(t, HeadCommit(t.TempDir()))
}
