// Package state persists the project state and brokers all adapter work.
//
// The engine never mutates state in place: every change goes through the
// Store's transactional API, and every agent session goes through
// RunInternalWork so the store can track the running task.
package state

import (
	"context"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
)

// SetPhaseStatusRequest updates one phase's state machine position.
type SetPhaseStatusRequest struct {
	PhaseID         string
	Status          constants.PhaseStatus
	FailureKind     constants.FailureKind
	CIStatusContext string
}

// StartTaskRequest runs one task to completion. TaskNumber is the 1-based
// position within the active phase.
type StartTaskRequest struct {
	TaskNumber int
	Assignee   domain.AdapterID
	Resume     bool
}

// CreateTaskRequest appends a new task to a phase.
type CreateTaskRequest struct {
	PhaseID      string
	Title        string
	Description  string
	Assignee     domain.AdapterID
	Dependencies []string
	Status       constants.TaskStatus
}

// RecordRecoveryRequest persists one recovery attempt.
type RecordRecoveryRequest struct {
	PhaseID       string
	TaskID        string
	AttemptNumber int
	Exception     domain.ExceptionMetadata
	Result        domain.RecoveryResult
}

// Store is the engine's collaborator for state and adapter work.
type Store interface {
	// GetState returns a snapshot of the whole project state.
	GetState() (*domain.ProjectState, error)

	// SetPhaseStatus moves a phase through its state machine.
	SetPhaseStatus(req SetPhaseStatusRequest) error

	// SetPhasePrUrl records the PR created for a phase.
	SetPhasePrUrl(phaseID, prURL string) error

	// StartActiveTaskAndWait runs the numbered task of the active phase to
	// completion and returns the updated state. The task's final status, not
	// the return error, carries the work outcome.
	StartActiveTaskAndWait(ctx context.Context, req StartTaskRequest) (*domain.ProjectState, error)

	// CreateTask appends a task and returns it with its assigned ID.
	CreateTask(req CreateTaskRequest) (*domain.Task, error)

	// ReconcileInProgressTasks resets IN_PROGRESS tasks to TODO after a crash
	// and returns how many were reset.
	ReconcileInProgressTasks() (int, error)

	// RecordRecoveryAttempt appends one recovery attempt record.
	RecordRecoveryAttempt(req RecordRecoveryRequest) error

	// RunInternalWork executes one adapter session.
	RunInternalWork(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error)
}
