package runner

import (
	goerrors "errors"
	"log/slog"
	"os/exec"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/ui"
)

// TaskState tracks a task through its lifecycle:
// Pending → Running → {Succeeded → Finalized | Failed}.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskFailed
	TaskFinalized
)

// Task pairs a running external process with the finalization to apply
// once that process exits successfully (side files first, then the stamp).
type Task struct {
	Name string

	cmd      *exec.Cmd
	finalize func() error
	state    TaskState
}

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState {
	return t.state
}

// Coordinator owns the tasks registered during one run and finalizes them
// once real execution is requested. It is not safe for concurrent use; the
// orchestrator is single-threaded and only the child processes run in
// parallel.
type Coordinator struct {
	tasks []*Task
}

// Register appends a task to the wait queue. Order is preserved.
func (c *Coordinator) Register(t *Task) {
	c.tasks = append(c.tasks, t)
}

// Len returns the number of registered tasks.
func (c *Coordinator) Len() int {
	return len(c.tasks)
}

// WaitAll waits on every registered task in registration order, not
// completion order: a fast task registered second waits behind a slower
// task registered first.
//
// The first non-zero exit aborts the run with a TaskFailed error.
// Already-running later tasks are neither signalled nor awaited
// (fire-and-forget); the process exits immediately afterwards and orphan
// reaping falls to the operating system. A task's finalizer runs only
// after its exit status is confirmed zero, so a stamp is never written for
// a failed build.
func (c *Coordinator) WaitAll() error {
	for _, task := range c.tasks {
		ui.Headline("Waiting for %s...", task.Name)

		if err := task.cmd.Wait(); err != nil {
			task.state = TaskFailed

			var exitErr *exec.ExitError
			if goerrors.As(err, &exitErr) {
				return errors.TaskFailed(task.Name, exitErr.ExitCode())
			}
			return errors.InternalError("waiting on task "+task.Name, err)
		}
		task.state = TaskSucceeded

		if task.finalize != nil {
			if err := task.finalize(); err != nil {
				return err
			}
		}
		task.state = TaskFinalized

		slog.Debug("Task finalized", "task", task.Name)
		ui.Success("%s completed", task.Name)
	}

	c.tasks = nil
	return nil
}
