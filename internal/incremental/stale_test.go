package incremental

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixture builds a stage with an output dir, a stamp, and one watched file
// older than the stamp.
type fixture struct {
	root    string
	output  string
	stamp   string
	watched string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:    root,
		output:  filepath.Join(root, "dist"),
		stamp:   filepath.Join(root, "stamps", "build.stamp"),
		watched: filepath.Join(root, "input.txt"),
	}

	require.NoError(t, os.Mkdir(f.output, 0o755))
	require.NoError(t, os.WriteFile(f.watched, []byte("in"), 0o644))
	require.NoError(t, WriteStamp(f.stamp))

	// Inputs strictly older than the stamp.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(f.watched, old, old))
	return f
}

func (f fixture) spec() StageSpec {
	return StageSpec{
		Name:       "test",
		OutputDir:  f.output,
		StampPath:  f.stamp,
		WatchFiles: []string{f.watched},
	}
}

func requireFresh(t *testing.T, spec StageSpec) {
	t.Helper()
	stale, reason, err := IsStale(spec)
	require.NoError(t, err)
	require.False(t, stale, "unexpectedly stale: %s", reason)
}

func requireStale(t *testing.T, spec StageSpec, wantReason string) {
	t.Helper()
	stale, reason, err := IsStale(spec)
	require.NoError(t, err)
	require.True(t, stale)
	require.Equal(t, wantReason, reason)
}

func TestFreshWhenNothingChanged(t *testing.T) {
	requireFresh(t, newFixture(t).spec())
}

func TestStaleWhenStampMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.stamp))
	requireStale(t, f.spec(), "stamp missing")
}

func TestStaleWhenOutputMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.output))
	requireStale(t, f.spec(), "output missing")
}

func TestStaleWhenWatchedFileNewer(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(f.watched, future, future))
	requireStale(t, f.spec(), "changed: "+f.watched)
}

func TestEqualTimestampsAreFresh(t *testing.T) {
	f := newFixture(t)
	info, err := os.Stat(f.stamp)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(f.watched, info.ModTime(), info.ModTime()))
	requireFresh(t, f.spec())
}

func TestForcedOverridesFreshStamp(t *testing.T) {
	f := newFixture(t)
	spec := f.spec()
	spec.Force = true
	requireStale(t, spec, "rebuild forced")
}

func TestSkipTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.stamp))
	spec := f.spec()
	spec.Skip = true
	spec.Force = true

	stale, reason, err := IsStale(spec)
	require.NoError(t, err)
	require.False(t, stale)
	require.Equal(t, "stage skipped", reason)
}

func TestMissingOptionalInputExcluded(t *testing.T) {
	f := newFixture(t)
	spec := f.spec()
	spec.WatchFiles = append(spec.WatchFiles, filepath.Join(f.root, "package-lock.json"))
	spec.WatchDirs = append(spec.WatchDirs, filepath.Join(f.root, "no-such-dir"))
	requireFresh(t, spec)
}

func TestStaleWhenDeepSubtreeFileNewer(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.root, "src")
	deep := filepath.Join(src, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	leaf := filepath.Join(deep, "main.ts")
	require.NoError(t, os.WriteFile(leaf, []byte("x"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(leaf, old, old))
	for _, dir := range []string{src, filepath.Join(src, "a"), filepath.Join(src, "a", "b"), deep} {
		require.NoError(t, os.Chtimes(dir, old, old))
	}

	spec := f.spec()
	spec.WatchDirs = []string{src}
	requireFresh(t, spec)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(leaf, future, future))
	requireStale(t, spec, "changed under: "+src)
}

func TestParameterSnapshot(t *testing.T) {
	f := newFixture(t)
	params, err := EncodeParams(map[string]string{"api_mode": "real"})
	require.NoError(t, err)

	spec := f.spec()
	spec.ParamsPath = filepath.Join(f.root, "stamps", "build.params.yaml")
	spec.Params = params

	// No snapshot recorded yet.
	requireStale(t, spec, "parameter snapshot missing")

	require.NoError(t, WriteParams(spec.ParamsPath, params))
	requireFresh(t, spec)

	changed, err := EncodeParams(map[string]string{"api_mode": "mock"})
	require.NoError(t, err)
	spec.Params = changed
	requireStale(t, spec, "parameters changed")
}

func TestStampRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deps.stamp")

	_, ok, err := StampTime(path)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, WriteStamp(path))
	when, ok, err := StampTime(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.WithinDuration(t, time.Now(), when, time.Minute)
}
