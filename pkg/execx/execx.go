// Package execx runs package-manager commands as plain argument vectors.
// Output is always captured combined (stdout and stderr interleaved as
// produced) so callers can report diagnostics, and can additionally be
// streamed live for verbose display. Execution never goes through a shell.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes one external invocation.
type Command struct {
	// Argv is the program and its arguments. Argv[0] is resolved via PATH
	// unless it contains a path separator.
	Argv []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the current environment.
	Env []string
}

// Result captures the outcome of one invocation.
type Result struct {
	// Output is the combined stdout+stderr text, decoded as UTF-8 with
	// replacement of invalid bytes, surrounding whitespace trimmed. When the
	// process could not be started, Output carries the spawn error text.
	Output string
	// ExitCode is the process exit status, or -1 when the process never ran.
	ExitCode int
	// Err is non-nil when the invocation failed for any reason.
	Err error
}

// Success reports whether the invocation ran and exited zero.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// RunOptions adjusts how a single invocation is performed.
type RunOptions struct {
	// Stream, when non-nil, receives the output live while it is still
	// captured into Result.Output.
	Stream io.Writer
}

// Runner executes commands. Local blocks the caller; Queue suspends the
// caller while a single worker drains submissions in order. Reconciliation
// is written once against this interface.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts RunOptions) Result
}

// Local is the blocking Runner: Run occupies the calling goroutine until the
// process exits.
type Local struct{}

// Run executes cmd and waits for it to finish.
func (Local) Run(ctx context.Context, cmd Command, opts RunOptions) Result {
	if len(cmd.Argv) == 0 {
		err := errors.New("execx: empty argument vector")
		return Result{Output: err.Error(), ExitCode: -1, Err: err}
	}

	execCmd := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	var buf bytes.Buffer
	var sink io.Writer = &buf
	if opts.Stream != nil {
		sink = io.MultiWriter(opts.Stream, &buf)
	}
	execCmd.Stdout = sink
	execCmd.Stderr = sink

	runErr := execCmd.Run()

	output := strings.TrimSpace(strings.ToValidUTF8(buf.String(), "�"))
	if runErr == nil {
		return Result{Output: output, ExitCode: 0}
	}

	code := exitCode(runErr)
	if output == "" {
		// Spawn failures (binary missing, permission denied) produce no
		// process output; surface the error text instead.
		output = runErr.Error()
	}
	return Result{
		Output:   output,
		ExitCode: code,
		Err:      fmt.Errorf("execx: %s: %w", cmd.Argv[0], runErr),
	}
}

// exitCode extracts the process exit status from a Run error. -1 means the
// process never ran (spawn failure or pre-start cancellation).
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
