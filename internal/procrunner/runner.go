// Package procrunner abstracts subprocess execution for the engine.
//
// The Runner interface is the sole boundary to the operating system; every
// component that spawns a process (adapters, git, the host CLI, the tester)
// consumes it. Tests substitute a scripted implementation.
package procrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// Request describes one subprocess invocation.
type Request struct {
	// Command is the executable name or path.
	Command string
	// Args are passed verbatim; no shell interpretation happens.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Timeout bounds the invocation. Zero applies DefaultProcessTimeout.
	Timeout time.Duration
	// Stdin, when non-empty, is fed to the process on standard input.
	Stdin string
}

// Result captures the full outcome of a subprocess invocation.
// Streams are captured into memory; truncation is the caller's concern.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Signal is the name of the terminating signal, if any.
	Signal string
}

// Runner executes subprocesses.
type Runner interface {
	// Run executes the request and returns its result. A non-zero exit or a
	// timeout yields a *ProcessExecutionError that still carries the partial
	// result for the caller to inspect.
	Run(ctx context.Context, req Request) (*Result, error)
}

// ProcessExecutionError is returned when a subprocess exits non-zero, is
// killed by a signal, or exceeds its timeout. The partial Result is always
// populated.
type ProcessExecutionError struct {
	Command string
	Args    []string
	Result  *Result
	// TimedOut is true when the timeout fired before the process exited.
	TimedOut bool
}

// Error implements the error interface.
func (e *ProcessExecutionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out after %s", e.Command, e.Result.Duration)
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

// Unwrap lets callers match the sentinel with errors.Is().
func (e *ProcessExecutionError) Unwrap() error {
	if e.TimedOut {
		return ixerrors.ErrCommandTimeout
	}
	return ixerrors.ErrCommandFailed
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates the production runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the request with exec.CommandContext, capturing both streams.
func (r *ExecRunner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if req.Command == "" {
		return nil, fmt.Errorf("command: %w", ixerrors.ErrEmptyValue)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = constants.DefaultProcessTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = req.Dir
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if state := cmd.ProcessState; state != nil {
		result.ExitCode = state.ExitCode()
	}

	if runErr == nil {
		return result, nil
	}

	// Outer-context cancellation is not a process failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	procErr := &ProcessExecutionError{
		Command: req.Command,
		Args:    req.Args,
		Result:  result,
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		procErr.TimedOut = true
		result.Signal = "SIGKILL"
		return result, procErr
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if ws, ok := exitErr.Sys().(interface{ Signaled() bool }); ok && ws.Signaled() {
			result.Signal = exitErr.String()
		}
		return result, procErr
	}

	// Start failures (missing binary, permission) have no exit code.
	result.ExitCode = -1
	result.Stderr = runErr.Error()
	return result, procErr
}

// firstLine returns the first line of s.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
