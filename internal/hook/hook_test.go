package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

func taskPayload() Payload {
	return Payload{PhaseID: "ph-1", TaskID: "t-1", TaskTitle: "Implement parser"}
}

func TestRegisterDuplicateIDFailsFast(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.NoError(t, r.Register(BeforeTaskStart, "notify", func(context.Context, Payload) error { return nil }))
	err := r.Register(BeforeTaskStart, "notify", func(context.Context, Payload) error { return nil })
	assert.ErrorIs(t, err, ixerrors.ErrHookDuplicateID)

	// Same ID under a different hook is fine.
	assert.NoError(t, r.Register(AfterTaskDone, "notify", func(context.Context, Payload) error { return nil }))
}

func TestRegisterRejectsUnknownHookAndEmptyID(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	assert.Error(t, r.Register(Name("on_launch"), "x", func(context.Context, Payload) error { return nil }))
	assert.ErrorIs(t, r.Register(BeforeTaskStart, "", func(context.Context, Payload) error { return nil }), ixerrors.ErrEmptyValue)
}

func TestDispatchRunsInRegistrationOrder(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	var order []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		require.NoError(t, r.Register(AfterTaskDone, id, func(context.Context, Payload) error {
			order = append(order, id)
			return nil
		}))
	}

	require.NoError(t, r.Dispatch(context.Background(), AfterTaskDone, taskPayload()))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDispatchFirstFailureAbortsRest(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	boom := errors.New("boom")
	ran := false
	require.NoError(t, r.Register(BeforeTaskStart, "failing", func(context.Context, Payload) error { return boom }))
	require.NoError(t, r.Register(BeforeTaskStart, "never", func(context.Context, Payload) error {
		ran = true
		return nil
	}))

	err := r.Dispatch(context.Background(), BeforeTaskStart, taskPayload())
	require.Error(t, err)
	assert.False(t, ran)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, BeforeTaskStart, execErr.HookName)
	assert.Equal(t, "failing", execErr.RegistrationID)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchNormalizesPanics(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	require.NoError(t, r.Register(OnCIFailed, "panicky", func(context.Context, Payload) error {
		panic("not an error value")
	}))

	err := r.Dispatch(context.Background(), OnCIFailed, Payload{PhaseID: "ph-1", FailureKind: constants.FailureKindRemoteCI})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Cause.Error(), "not an error value")
}

func TestDispatchTimeout(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), WithTimeout(10*time.Millisecond))
	require.NoError(t, r.Register(OnRecovery, "slow", func(ctx context.Context, _ Payload) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}))

	err := r.Dispatch(context.Background(), OnRecovery, Payload{PhaseID: "ph-1", Category: domain.ExceptionDirtyWorktree})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.EqualValues(t, 10, execErr.TimeoutMs)
	assert.ErrorIs(t, execErr.Cause, context.DeadlineExceeded)
}

func TestDispatchValidatesPayload(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	err := r.Dispatch(context.Background(), BeforeTaskStart, Payload{PhaseID: "ph-1"})
	assert.ErrorIs(t, err, ixerrors.ErrHookPayload)

	err = r.Dispatch(context.Background(), OnRecovery, Payload{PhaseID: "ph-1"})
	assert.ErrorIs(t, err, ixerrors.ErrHookPayload)

	err = r.Dispatch(context.Background(), OnCIFailed, Payload{})
	assert.ErrorIs(t, err, ixerrors.ErrHookPayload)
}

func TestDispatchNoHandlersIsNoop(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	assert.NoError(t, r.Dispatch(context.Background(), AfterTaskDone, taskPayload()))
}
