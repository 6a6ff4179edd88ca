package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestEvaluateGate(t *testing.T) {
	tests := []struct {
		name   string
		status constants.PhaseStatus
		tasks  []domain.Task
		want   Gate
	}{
		{"planning is open", constants.PhasePlanning, nil, GateOpen},
		{"coding is open", constants.PhaseCoding, nil, GateOpen},
		{"done with no tasks is closed", constants.PhaseDone, nil, GateClosed},
		{"ci failed with fix task is resumable", constants.PhaseCIFailed,
			[]domain.Task{{Status: constants.TaskCIFix}}, GateResumable},
		{"ci failed with only done tasks is closed", constants.PhaseCIFailed,
			[]domain.Task{{Status: constants.TaskDone}}, GateClosed},
		{"awaiting ci with todo is resumable", constants.PhaseAwaitingCI,
			[]domain.Task{{Status: constants.TaskTodo}}, GateResumable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase := &domain.Phase{Status: tt.status, Tasks: tt.tasks}
			assert.Equal(t, tt.want, EvaluateGate(phase))
		})
	}
}

func TestPreflightErrors(t *testing.T) {
	_, err := Preflight(nil)
	assert.ErrorIs(t, err, ixerrors.ErrPreflight)

	_, err = Preflight(&domain.Phase{ID: "ph-1", Status: constants.PhasePlanning})
	require.ErrorIs(t, err, ixerrors.ErrPreflight)
	assert.Contains(t, err.Error(), "branch name is empty")

	_, err = Preflight(&domain.Phase{ID: "ph-1", BranchName: "feat/x", Status: constants.PhaseDone})
	require.ErrorIs(t, err, ixerrors.ErrPreflight)

	gate, err := Preflight(&domain.Phase{ID: "ph-1", BranchName: "feat/x", Status: constants.PhasePlanning})
	require.NoError(t, err)
	assert.Equal(t, GateOpen, gate)
}
