package runner

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestRunSyncSuccess(t *testing.T) {
	r := &Runner{}
	require.NoError(t, r.RunSync(Command{Program: "true"}))
}

func TestRunSyncCommandFailed(t *testing.T) {
	r := &Runner{}
	err := r.RunSync(Command{Program: "sh", Args: []string{"-c", "exit 3"}})
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryCommand))

	var be *errors.BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, 3, be.Context["exit_code"])
}

func TestRunSyncExecutableNotFound(t *testing.T) {
	r := &Runner{}
	err := r.RunSync(Command{Program: "definitely-not-a-real-tool-xyz"})
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryCommand))
}

func TestRunSyncRespectsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{}
	require.NoError(t, r.RunSync(Command{
		Program: "sh",
		Args:    []string{"-c", "touch marker"},
		Dir:     dir,
	}))
	require.FileExists(t, filepath.Join(dir, "marker"))
}

func TestRunSyncPassesEnv(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	r := &Runner{}
	require.NoError(t, r.RunSync(Command{
		Program: "sh",
		Args:    []string{"-c", `printf '%s' "$BUILD_FLAVOR" > ` + out},
		Env:     map[string]string{"BUILD_FLAVOR": "release"},
	}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "release", string(data))
}

func TestDryRunExecutesNothing(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{DryRun: true}
	require.NoError(t, r.RunSync(Command{
		Program: "sh",
		Args:    []string{"-c", "touch marker"},
		Dir:     dir,
	}))
	require.NoFileExists(t, filepath.Join(dir, "marker"))
}

func TestSpawnAsyncInDryRunIsAnError(t *testing.T) {
	r := &Runner{DryRun: true}
	task, err := r.SpawnAsync("frontend build", Command{Program: "true"}, nil)
	require.Nil(t, task)
	require.True(t, errors.IsCategory(err, errors.CategoryInternal))
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "npm run build", Command{Program: "npm", Args: []string{"run", "build"}}.String())
	require.Equal(t, "(cd /app) npm ci", Command{Program: "npm", Args: []string{"ci"}, Dir: "/app"}.String())
}

func TestCommandStringShowsEnv(t *testing.T) {
	cmd := Command{
		Program: "npm",
		Args:    []string{"run", "build"},
		Dir:     "/app/webapp",
		Env: map[string]string{
			"VITE_API_MODE":     "real",
			"VITE_API_BASE_URL": "",
		},
	}
	// Env assignments are sorted so the rendering is stable.
	require.Equal(t, "(cd /app/webapp) VITE_API_BASE_URL= VITE_API_MODE=real npm run build", cmd.String())
}
