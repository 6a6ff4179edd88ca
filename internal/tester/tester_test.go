package tester

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	"github.com/ixado/ixado/internal/testutil"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
}

func TestDetectConfiguredCommandWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json")

	command, args, ok := Detect(dir, Config{Command: "pytest", Args: []string{"-q"}})
	require.True(t, ok)
	assert.Equal(t, "pytest", command)
	assert.Equal(t, []string{"-q"}, args)
}

func TestDetectPackageJSONBeforeMakefile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json")
	writeFile(t, dir, "Makefile")

	command, args, ok := Detect(dir, Config{})
	require.True(t, ok)
	assert.Equal(t, "npm", command)
	assert.Equal(t, []string{"test"}, args)
}

func TestDetectMakefileFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Makefile")

	command, args, ok := Detect(dir, Config{})
	require.True(t, ok)
	assert.Equal(t, "make", command)
	assert.Equal(t, []string{"test"}, args)
}

func TestDetectNothing(t *testing.T) {
	_, _, ok := Detect(t.TempDir(), Config{})
	assert.False(t, ok)
}

func TestRunSkippedWhenNothingDetected(t *testing.T) {
	w := NewWorkflow(testutil.NewScriptedRunner(), zerolog.Nop())

	result, err := w.Run(context.Background(), t.TempDir(), Config{}, domain.Task{}, nil)
	require.NoError(t, err)
	assert.Equal(t, VerdictSkipped, result.Verdict)
}

func TestRunPassed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json")

	runner := testutil.NewScriptedRunner()
	runner.On("npm test", testutil.ScriptedResponse{Stdout: "all green"})
	w := NewWorkflow(runner, zerolog.Nop())

	created := false
	result, err := w.Run(context.Background(), dir, Config{}, domain.Task{ID: "t-1"}, func(domain.Task) error {
		created = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictPassed, result.Verdict)
	assert.Equal(t, "all green", result.Output)
	assert.False(t, created)
}

func TestRunFailureDerivesFixTask(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Makefile")

	runner := testutil.NewScriptedRunner()
	runner.On("make test", testutil.ScriptedResponse{ExitCode: 2, Stdout: "FAIL: TestThing", Stderr: "exit status 2"})
	w := NewWorkflow(runner, zerolog.Nop())

	trigger := domain.Task{ID: "t-7", Title: "Implement parser", Assignee: domain.AdapterCodex}

	var fix domain.Task
	result, err := w.Run(context.Background(), dir, Config{}, trigger, func(task domain.Task) error {
		fix = task
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictFailed, result.Verdict)

	assert.Equal(t, "Fix tests after Implement parser", fix.Title)
	assert.Equal(t, constants.TaskCIFix, fix.Status)
	assert.Equal(t, []string{"t-7"}, fix.Dependencies)
	assert.Equal(t, domain.AdapterCodex, fix.Assignee)
	assert.Contains(t, fix.Description, "make test")
	assert.Contains(t, fix.Description, "FAIL: TestThing")
}

func TestTruncationBoundary(t *testing.T) {
	exact := strings.Repeat("a", constants.MaxTesterOutputLength)
	assert.Equal(t, exact, Truncate(exact, constants.MaxTesterOutputLength))
	assert.NotContains(t, Truncate(exact, constants.MaxTesterOutputLength), "[truncated]")

	over := exact + "b"
	truncated := Truncate(over, constants.MaxTesterOutputLength)
	assert.True(t, strings.HasSuffix(truncated, "\n[truncated]"))
	assert.Equal(t, exact, strings.TrimSuffix(truncated, "\n[truncated]"))
}
