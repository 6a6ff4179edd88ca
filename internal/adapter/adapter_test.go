package adapter

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/testutil"
)

func TestNewValidatesRequiredArgs(t *testing.T) {
	spec := CodexSpec()
	runner := testutil.NewScriptedRunner()

	a, err := New(spec, runner)
	require.NoError(t, err)
	assert.Equal(t, domain.AdapterCodex, a.ID())
}

func TestRunRevalidatesAfterTampering(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	a, err := New(CodexSpec(), runner)
	require.NoError(t, err)

	// Simulate post-construction tampering: strip a required batch-mode arg.
	args := a.BaseArgs()
	args[1] = "--interactive"

	_, err = a.Run(context.Background(), RunRequest{Prompt: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ixerrors.ErrInteractiveMode)

	var imErr *InteractiveModeError
	require.ErrorAs(t, err, &imErr)
	assert.Equal(t, domain.AdapterCodex, imErr.AdapterID)

	// No subprocess may be spawned on a validation failure.
	assert.Empty(t, runner.Calls())
}

func TestRunRejectsForbiddenArg(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	a, err := New(ClaudeSpec(), runner, WithExtraArgs("--interactive"))
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ixerrors.ErrInteractiveMode)
}

func TestBypassFlagOffByDefault(t *testing.T) {
	runner := testutil.NewScriptedRunner()

	a, err := New(ClaudeSpec(), runner, WithExtraArgs("--dangerously-skip-permissions"))
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ixerrors.ErrInteractiveMode)
}

func TestBypassFlagExactlyOnceWhenEnabled(t *testing.T) {
	runner := testutil.NewScriptedRunner()

	a, err := New(ClaudeSpec(), runner, WithBypassApprovals())
	require.NoError(t, err)
	assert.Contains(t, a.BaseArgs(), "--dangerously-skip-permissions")

	// A second copy smuggled in via extra args fails construction.
	_, err = New(ClaudeSpec(), runner, WithBypassApprovals(), WithExtraArgs("--dangerously-skip-permissions"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ixerrors.ErrInteractiveMode)
}

func TestRunBuildsPlanAndExecutes(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	runner.On("codex", testutil.ScriptedResponse{Stdout: `{"ok":true}`})

	a, err := New(CodexSpec(), runner)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), RunRequest{Prompt: "implement feature", Dir: "/tmp/wt"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, result.Stdout)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "codex", calls[0].Command)
	assert.Equal(t, []string{"exec", "--json", "-"}, calls[0].Args)
	assert.Equal(t, "implement feature", calls[0].Stdin)
	assert.Equal(t, "/tmp/wt", calls[0].Dir)
}

func TestRunWrapsExecutionFailure(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	runner.On("claude", testutil.ScriptedResponse{ExitCode: 1, Stderr: "boom"})

	a, err := New(ClaudeSpec(), runner)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), RunRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ixerrors.ErrAdapterInvocation)
}

func TestDefaultRegistryHoldsAllAdapters(t *testing.T) {
	registry, err := DefaultRegistry(testutil.NewScriptedRunner(), zerolog.Nop())
	require.NoError(t, err)

	for _, id := range []domain.AdapterID{domain.AdapterClaude, domain.AdapterCodex, domain.AdapterGemini, domain.AdapterMock} {
		assert.True(t, registry.Has(id), id)
	}

	_, err = registry.Get(domain.AdapterID("unknown"))
	assert.ErrorIs(t, err, ixerrors.ErrAdapterNotFound)
}
