package procrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	r := NewExecRunner()

	result, err := r.Run(context.Background(), Request{
		Command: "sh",
		Args:    []string{"-c", "printf out; printf err >&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "out", result.Stdout)
	assert.Equal(t, "err", result.Stderr)
	assert.Positive(t, result.Duration)
}

func TestExecRunnerStdin(t *testing.T) {
	r := NewExecRunner()

	result, err := r.Run(context.Background(), Request{
		Command: "cat",
		Stdin:   "hello from stdin",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from stdin", result.Stdout)
}

func TestExecRunnerNonZeroExitCarriesPartialResult(t *testing.T) {
	r := NewExecRunner()

	result, err := r.Run(context.Background(), Request{
		Command: "sh",
		Args:    []string{"-c", "echo partial; exit 3"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ixerrors.ErrCommandFailed)

	var procErr *ProcessExecutionError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 3, procErr.Result.ExitCode)
	assert.Equal(t, "partial\n", procErr.Result.Stdout)
	assert.False(t, procErr.TimedOut)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecRunnerTimeout(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Request{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ixerrors.ErrCommandTimeout)

	var procErr *ProcessExecutionError
	require.ErrorAs(t, err, &procErr)
	assert.True(t, procErr.TimedOut)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Request{
		Command: "definitely-not-a-real-binary-xyz",
	})
	require.Error(t, err)

	var procErr *ProcessExecutionError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, -1, procErr.Result.ExitCode)
}

func TestExecRunnerCanceledContext(t *testing.T) {
	r := NewExecRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Request{Command: "true"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecRunnerEmptyCommand(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ixerrors.ErrEmptyValue)
}
