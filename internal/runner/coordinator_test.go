package runner

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWaitAllFinalizesInRegistrationOrder(t *testing.T) {
	r := &Runner{}
	var order []string

	slow, err := r.SpawnAsync("slow", Command{Program: "sleep", Args: []string{"0.2"}},
		func() error { order = append(order, "slow"); return nil })
	require.NoError(t, err)

	fast, err := r.SpawnAsync("fast", Command{Program: "true"},
		func() error { order = append(order, "fast"); return nil })
	require.NoError(t, err)

	c := &Coordinator{}
	c.Register(slow)
	c.Register(fast)

	require.NoError(t, c.WaitAll())
	require.Equal(t, []string{"slow", "fast"}, order)
	require.Equal(t, TaskFinalized, slow.State())
	require.Equal(t, TaskFinalized, fast.State())
	require.Zero(t, c.Len())
}

// A succeeding task registered first must be fully finalized before a
// quickly-failing task registered second surfaces its failure.
func TestOrderingUnderPartialFailure(t *testing.T) {
	r := &Runner{}
	finalized := false

	slowOK, err := r.SpawnAsync("slow ok", Command{Program: "sleep", Args: []string{"0.2"}},
		func() error { finalized = true; return nil })
	require.NoError(t, err)

	fastFail, err := r.SpawnAsync("fast fail", Command{Program: "sh", Args: []string{"-c", "exit 7"}}, nil)
	require.NoError(t, err)

	c := &Coordinator{}
	c.Register(slowOK)
	c.Register(fastFail)

	start := time.Now()
	err = c.WaitAll()
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryTask))

	var be *errors.BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "fast fail", be.Context["task"])
	require.Equal(t, 7, be.Context["exit_code"])

	require.True(t, finalized, "first task must be finalized before the failure surfaces")
	require.Equal(t, TaskFinalized, slowOK.State())
	require.Equal(t, TaskFailed, fastFail.State())
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond,
		"wait order must follow registration order, not completion order")
}

func TestFinalizerNeverRunsForFailedTask(t *testing.T) {
	r := &Runner{}
	finalized := false

	task, err := r.SpawnAsync("failing", Command{Program: "sh", Args: []string{"-c", "exit 1"}},
		func() error { finalized = true; return nil })
	require.NoError(t, err)

	c := &Coordinator{}
	c.Register(task)

	require.Error(t, c.WaitAll())
	require.False(t, finalized)
	require.Equal(t, TaskFailed, task.State())
}

func TestWaitAllEmpty(t *testing.T) {
	c := &Coordinator{}
	require.NoError(t, c.WaitAll())
}
