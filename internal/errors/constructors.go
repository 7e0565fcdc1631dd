package errors

// Convenience constructors for the error kinds the pipeline raises.

// Toolchain errors

// ToolchainMissing reports a required external command absent from PATH.
// Raised before any mutation so a broken environment fails fast.
func ToolchainMissing(tool, installHint string) *BuildError {
	e := New(CategoryToolchain, SeverityFatal, "missing required command").
		WithContext("tool", tool)
	if installHint != "" {
		e = e.WithContext("install", installHint)
	}
	return e
}

// Command execution errors

// ExecutableNotFound reports a program that could not be launched at all.
func ExecutableNotFound(program string, cause error) *BuildError {
	return Wrap(cause, CategoryCommand, SeverityFatal, "executable not found").
		WithContext("program", program)
}

// CommandFailed reports a synchronous command that exited non-zero.
func CommandFailed(program string, args []string, exitCode int) *BuildError {
	return New(CategoryCommand, SeverityFatal, "command failed").
		WithContext("program", program).
		WithContext("args", args).
		WithContext("exit_code", exitCode)
}

// TaskFailed reports an asynchronous stage whose process exited non-zero.
func TaskFailed(name string, exitCode int) *BuildError {
	return New(CategoryTask, SeverityFatal, "task failed").
		WithContext("task", name).
		WithContext("exit_code", exitCode)
}

// Assembly errors

// MissingArtifact reports an assembly precondition unmet despite apparently
// successful upstream stages (including stages skipped on every prior run).
func MissingArtifact(stage, path string) *BuildError {
	return New(CategoryArtifact, SeverityFatal, "build artifact missing").
		WithContext("stage", stage).
		WithContext("path", path)
}

// Filesystem errors

// FilesystemError wraps an I/O failure during a named operation.
func FilesystemError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation)
}

// Config errors

// ConfigError reports an invalid configuration value.
func ConfigError(field, reason string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Internal errors

// InternalError wraps a programming error (e.g. spawning in dry-run mode).
func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}

// Icon errors

// IconError wraps a non-fatal icon generation failure. The build proceeds
// without an application icon.
func IconError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryIcon, SeverityWarning, message)
}
