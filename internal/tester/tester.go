// Package tester runs the local test suite after each completed task and
// derives a targeted fix-task when it fails.
package tester

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	"github.com/ixado/ixado/internal/procrunner"
)

// Verdict is the outcome of one tester run.
type Verdict string

// Tester verdicts. SKIPPED means no test command was configured or detected.
const (
	VerdictPassed  Verdict = "PASSED"
	VerdictFailed  Verdict = "FAILED"
	VerdictSkipped Verdict = "SKIPPED"
)

// Config selects the test command. Empty Command triggers auto-detection.
type Config struct {
	Command string
	Args    []string
}

// Result captures one tester run.
type Result struct {
	Verdict Verdict
	Command string
	Args    []string
	Output  string
}

// CreateFixTask persists a derived fix-task. The caller owns deduplication
// and depth enforcement.
type CreateFixTask func(task domain.Task) error

// Workflow runs the test suite via the process runner.
type Workflow struct {
	runner procrunner.Runner
	logger zerolog.Logger
}

// NewWorkflow creates a tester workflow.
func NewWorkflow(runner procrunner.Runner, logger zerolog.Logger) *Workflow {
	return &Workflow{runner: runner, logger: logger}
}

// Detect resolves the test command for a working directory. Configured
// commands win; otherwise package.json selects npm, then Makefile selects
// make. No match means the tester is skipped.
func Detect(cwd string, cfg Config) (command string, args []string, ok bool) {
	if cfg.Command != "" {
		return cfg.Command, cfg.Args, true
	}
	if fileExists(filepath.Join(cwd, "package.json")) {
		return "npm", []string{"test"}, true
	}
	if fileExists(filepath.Join(cwd, "Makefile")) {
		return "make", []string{"test"}, true
	}
	return "", nil, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Run executes the test suite for the just-completed trigger task. On failure
// it derives a fix-task and hands it to createFixTask.
func (w *Workflow) Run(ctx context.Context, cwd string, cfg Config, trigger domain.Task, createFixTask CreateFixTask) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	command, args, ok := Detect(cwd, cfg)
	if !ok {
		w.logger.Info().Str("cwd", cwd).Msg("no test command configured or detected, skipping tester")
		return &Result{Verdict: VerdictSkipped}, nil
	}

	w.logger.Info().Str("command", command).Strs("args", args).Msg("running tester")

	result, err := w.runner.Run(ctx, procrunner.Request{
		Command: command,
		Args:    args,
		Dir:     cwd,
	})

	output := ""
	if result != nil {
		output = combineOutput(result.Stdout, result.Stderr)
	}

	if err == nil {
		return &Result{Verdict: VerdictPassed, Command: command, Args: args, Output: output}, nil
	}

	var procErr *procrunner.ProcessExecutionError
	if !errors.As(err, &procErr) {
		return nil, fmt.Errorf("tester run: %w", err)
	}

	w.logger.Warn().Int("exit_code", procErr.Result.ExitCode).Msg("tester failed, deriving fix task")

	fixTask := BuildFixTask(trigger, command, args, err.Error(), output)
	if createFixTask != nil {
		if createErr := createFixTask(fixTask); createErr != nil {
			return nil, fmt.Errorf("create fix task: %w", createErr)
		}
	}

	return &Result{Verdict: VerdictFailed, Command: command, Args: args, Output: output}, nil
}

// BuildFixTask derives the deterministic fix-task for a tester failure.
func BuildFixTask(trigger domain.Task, command string, args []string, errMsg, output string) domain.Task {
	commandLine := command
	if len(args) > 0 {
		commandLine += " " + strings.Join(args, " ")
	}

	description := fmt.Sprintf(
		"The test suite failed after completing task %q.\n\nCommand: %s\nError: %s\n\nOutput:\n%s",
		trigger.Title, commandLine, errMsg, Truncate(output, constants.MaxTesterOutputLength),
	)

	return domain.Task{
		Title:        "Fix tests after " + trigger.Title,
		Description:  description,
		Status:       constants.TaskCIFix,
		Assignee:     trigger.Assignee,
		Dependencies: []string{trigger.ID},
	}
}

// Truncate caps s at max characters, appending a marker when anything was
// cut. A string of exactly max characters passes through unmarked.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}

func combineOutput(stdout, stderr string) string {
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	}
	return stdout + "\n" + stderr
}
