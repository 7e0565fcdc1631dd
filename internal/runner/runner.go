// Package runner executes external build commands, synchronously or as
// background tasks, and coordinates the finalization of concurrent stages.
// Child processes inherit the parent's standard streams; output is never
// captured.
package runner

import (
	goerrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/ui"
)

// Command describes one external process invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string            // working directory, empty for inherited
	Env     map[string]string // additional variables over the parent environment
}

// String renders the command for announcements and error messages. Extra
// environment variables appear as shell-style assignments before the
// program, in sorted order, so a planned invocation shows everything the
// real one would receive.
func (c Command) String() string {
	s := c.Program
	if len(c.Args) > 0 {
		s += " " + strings.Join(c.Args, " ")
	}
	if len(c.Env) > 0 {
		keys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i := len(keys) - 1; i >= 0; i-- {
			s = keys[i] + "=" + c.Env[keys[i]] + " " + s
		}
	}
	if c.Dir != "" {
		s = "(cd " + c.Dir + ") " + s
	}
	return s
}

// build constructs the exec.Cmd with inherited stdio.
func (c Command) build() *exec.Cmd {
	cmd := exec.Command(c.Program, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Runner launches external build commands. In dry-run mode every execution
// is replaced by a plan announcement.
type Runner struct {
	DryRun bool
}

// RunSync blocks until the command exits. A non-zero exit is a
// CommandFailed error; a program that cannot be launched is
// ExecutableNotFound. In dry-run mode the command is announced and nothing
// runs.
func (r *Runner) RunSync(cmd Command) error {
	if r.DryRun {
		ui.Plan("%s", cmd.String())
		return nil
	}

	slog.Debug("Running command", "command", cmd.String())

	err := cmd.build().Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if goerrors.As(err, &exitErr) {
		return errors.CommandFailed(cmd.Program, cmd.Args, exitErr.ExitCode())
	}
	return errors.ExecutableNotFound(cmd.Program, err)
}

// SpawnAsync starts the command without waiting and returns a live Task
// carrying the finalizer to run once the process is confirmed successful.
//
// Spawning during a dry run is a programming error: planning output is
// synchronous and must never interleave with real execution.
func (r *Runner) SpawnAsync(name string, cmd Command, finalize func() error) (*Task, error) {
	if r.DryRun {
		return nil, errors.InternalError("SpawnAsync called in dry-run mode", nil)
	}

	slog.Debug("Spawning command", "task", name, "command", cmd.String())

	proc := cmd.build()
	if err := proc.Start(); err != nil {
		return nil, errors.ExecutableNotFound(cmd.Program, err)
	}

	return &Task{
		Name:     name,
		cmd:      proc,
		finalize: finalize,
		state:    TaskRunning,
	}, nil
}
