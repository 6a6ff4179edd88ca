package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

func seededStore(t *testing.T, execWork WorkExecutor) *FileStore {
	t.Helper()
	store := NewFileStore(t.TempDir(), execWork, zerolog.Nop())
	require.NoError(t, store.SeedState(&domain.ProjectState{
		ProjectName:   "demo",
		ActivePhaseID: "ph-1",
		Phases: []domain.Phase{{
			ID:         "ph-1",
			Name:       "Phase one",
			BranchName: "feat/one",
			Status:     constants.PhasePlanning,
			Tasks: []domain.Task{
				{ID: "t-1", Title: "First task", Status: constants.TaskTodo},
				{ID: "t-2", Title: "Second task", Status: constants.TaskInProgress},
			},
		}},
	}))
	return store
}

func TestGetStateEmptyWhenMissing(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil, zerolog.Nop())
	state, err := store.GetState()
	require.NoError(t, err)
	assert.Empty(t, state.Phases)
}

func TestGetStateCorrupted(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, constants.ProjectDirName)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.StateFileName), []byte("{nope"), 0o600))

	store := NewFileStore(root, nil, zerolog.Nop())
	_, err := store.GetState()
	assert.ErrorIs(t, err, ixerrors.ErrStateCorrupted)
}

func TestSetPhaseStatusPersists(t *testing.T) {
	store := seededStore(t, nil)

	require.NoError(t, store.SetPhaseStatus(SetPhaseStatusRequest{
		PhaseID:         "ph-1",
		Status:          constants.PhaseCIFailed,
		FailureKind:     constants.FailureKindRemoteCI,
		CIStatusContext: "CI_FIX mapping: created=2, skipped_existing=0",
	}))

	state, err := store.GetState()
	require.NoError(t, err)
	phase := state.PhaseByID("ph-1")
	assert.Equal(t, constants.PhaseCIFailed, phase.Status)
	assert.Equal(t, constants.FailureKindRemoteCI, phase.FailureKind)
	assert.Contains(t, phase.CIStatusContext, "created=2")
}

func TestSetPhaseStatusUnknownPhase(t *testing.T) {
	store := seededStore(t, nil)
	err := store.SetPhaseStatus(SetPhaseStatusRequest{PhaseID: "missing", Status: constants.PhaseDone})
	assert.ErrorIs(t, err, ixerrors.ErrPhaseNotFound)
}

func TestStartActiveTaskAndWaitSuccess(t *testing.T) {
	var captured domain.WorkRequest
	store := seededStore(t, func(_ context.Context, req domain.WorkRequest) (*domain.WorkResult, error) {
		captured = req
		return &domain.WorkResult{Stdout: "implemented"}, nil
	})

	state, err := store.StartActiveTaskAndWait(context.Background(), StartTaskRequest{
		TaskNumber: 1,
		Assignee:   domain.AdapterClaude,
	})
	require.NoError(t, err)

	task := state.PhaseByID("ph-1").TaskByID("t-1")
	assert.Equal(t, constants.TaskDone, task.Status)
	assert.Equal(t, "implemented", task.ResultContext)

	assert.Equal(t, "t-1", captured.TaskID)
	assert.Equal(t, domain.AdapterClaude, captured.Assignee)
	assert.Contains(t, captured.Prompt, "First task")
}

func TestStartActiveTaskAndWaitFailureMarksTask(t *testing.T) {
	store := seededStore(t, func(context.Context, domain.WorkRequest) (*domain.WorkResult, error) {
		return nil, errors.New("adapter blew up")
	})

	state, err := store.StartActiveTaskAndWait(context.Background(), StartTaskRequest{TaskNumber: 1})
	require.NoError(t, err)

	task := state.PhaseByID("ph-1").TaskByID("t-1")
	assert.Equal(t, constants.TaskFailed, task.Status)
	assert.Contains(t, task.ErrorLogs, "adapter blew up")
}

func TestStartActiveTaskAndWaitBadNumber(t *testing.T) {
	store := seededStore(t, nil)
	_, err := store.StartActiveTaskAndWait(context.Background(), StartTaskRequest{TaskNumber: 9})
	assert.ErrorIs(t, err, ixerrors.ErrTaskNotFound)
}

func TestCreateTaskAssignsID(t *testing.T) {
	store := seededStore(t, nil)

	task, err := store.CreateTask(CreateTaskRequest{
		PhaseID:      "ph-1",
		Title:        "CI_FIX: lint",
		Status:       constants.TaskCIFix,
		Dependencies: []string{"t-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)

	state, err := store.GetState()
	require.NoError(t, err)
	stored := state.PhaseByID("ph-1").TaskByID(task.ID)
	require.NotNil(t, stored)
	assert.Equal(t, constants.TaskCIFix, stored.Status)
}

func TestReconcileInProgressTasks(t *testing.T) {
	store := seededStore(t, nil)

	count, err := store.ReconcileInProgressTasks()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	state, err := store.GetState()
	require.NoError(t, err)
	assert.Equal(t, constants.TaskTodo, state.PhaseByID("ph-1").TaskByID("t-2").Status)

	count, err = store.ReconcileInProgressTasks()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecordRecoveryAttempt(t *testing.T) {
	store := seededStore(t, nil)

	require.NoError(t, store.RecordRecoveryAttempt(RecordRecoveryRequest{
		PhaseID:       "ph-1",
		AttemptNumber: 1,
		Exception:     domain.ExceptionMetadata{Category: domain.ExceptionDirtyWorktree},
		Result:        domain.RecoveryResult{Status: domain.RecoveryFixed},
	}))

	state, err := store.GetState()
	require.NoError(t, err)
	require.Len(t, state.RecoveryAttempts, 1)
	assert.False(t, state.RecoveryAttempts[0].OccurredAt.IsZero())
}

func TestActivePhaseResolution(t *testing.T) {
	state := &domain.ProjectState{Phases: []domain.Phase{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, "a", state.ActivePhase().ID)

	state.ActivePhaseID = "b"
	assert.Equal(t, "b", state.ActivePhase().ID)

	state.ActivePhaseID = "missing"
	assert.Nil(t, state.ActivePhase())
}
