// Package constants defines shared constants for ixado.
//
// This package holds phase/task status enumerations, default tuning values,
// on-disk path components, and the authorization action catalog.
//
// IMPORTANT: This package MUST NOT import any other internal packages.
package constants

// PhaseStatus represents the lifecycle state of a phase.
// The phase state machine advances
// PLANNING -> BRANCHING -> CODING -> CREATING_PR -> AWAITING_CI -> READY_FOR_REVIEW,
// with CI_FAILED as the resumable failure branch and DONE used when CI is disabled.
type PhaseStatus string

// Phase status values.
const (
	PhasePlanning       PhaseStatus = "PLANNING"
	PhaseBranching      PhaseStatus = "BRANCHING"
	PhaseCoding         PhaseStatus = "CODING"
	PhaseCreatingPR     PhaseStatus = "CREATING_PR"
	PhaseAwaitingCI     PhaseStatus = "AWAITING_CI"
	PhaseReadyForReview PhaseStatus = "READY_FOR_REVIEW"
	PhaseCIFailed       PhaseStatus = "CI_FAILED"
	PhaseDone           PhaseStatus = "DONE"
)

// String returns the status as a string.
func (s PhaseStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the phase status is terminal.
// Terminal phases may still be resumable when actionable tasks remain.
func (s PhaseStatus) IsTerminal() bool {
	switch s {
	case PhaseDone, PhaseAwaitingCI, PhaseReadyForReview, PhaseCIFailed:
		return true
	case PhasePlanning, PhaseBranching, PhaseCoding, PhaseCreatingPR:
		return false
	}
	return false
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Task status values. CIFix outranks Todo in scheduling.
const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskFailed     TaskStatus = "FAILED"
	TaskCIFix      TaskStatus = "CI_FIX"
)

// String returns the status as a string.
func (s TaskStatus) String() string {
	return string(s)
}

// IsActionable reports whether the scheduler may pick a task in this status.
func (s TaskStatus) IsActionable() bool {
	return s == TaskTodo || s == TaskCIFix
}

// FailureKind classifies why a phase ended in CI_FAILED.
type FailureKind string

// Failure kind values recorded on the phase.
const (
	FailureKindNone       FailureKind = ""
	FailureKindRemoteCI   FailureKind = "REMOTE_CI"
	FailureKindRecovery   FailureKind = "RECOVERY_EXHAUSTED"
	FailureKindTester     FailureKind = "TESTER"
	FailureKindReview     FailureKind = "REVIEW"
	FailureKindGuardrails FailureKind = "GUARDRAILS"
)
