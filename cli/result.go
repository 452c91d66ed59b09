package cli

import (
	stdErrors "errors"

	"github.com/alecthomas/kong"
)

// CommandError reports a failed command whose messages are already printed.
// main turns it into the exit code without printing anything else.
type CommandError struct {
	exitCode int
}

// NewCommandError creates a new CommandError with the given exit code.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return "command failed"
}

// ExitCode returns the exit code associated with this error.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}

// CommandResult is the outcome of running the selected command.
type CommandResult struct {
	// ExitCode is the process exit code, 0 on success.
	ExitCode int

	// Err is set for failures that were not reported yet. It is nil when
	// the command printed its own diagnostics and returned a CommandError.
	Err error
}

// Success returns a CommandResult indicating successful execution.
func Success() CommandResult {
	return CommandResult{ExitCode: 0}
}

// Failure returns a CommandResult indicating failure with the given error.
func Failure(err error) CommandResult {
	return CommandResult{ExitCode: 1, Err: err}
}

// Execute runs the command selected in ctx.
func Execute(ctx *kong.Context) CommandResult {
	err := ctx.Run()
	if err == nil {
		return Success()
	}

	var cmdErr *CommandError
	if stdErrors.As(err, &cmdErr) {
		return CommandResult{ExitCode: cmdErr.ExitCode()}
	}
	return Failure(err)
}
