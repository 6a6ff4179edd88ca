// Package phase drives one phase through its state machine: preflight,
// branching, the task loop, local testing, CI integration, and review.
package phase

import (
	"fmt"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// Gate is the preflight verdict on whether a phase may run.
type Gate string

// Preflight gates. RESUMABLE means terminal status with actionable tasks
// left, e.g. CI_FAILED with pending fix-tasks.
const (
	GateOpen      Gate = "OPEN"
	GateResumable Gate = "RESUMABLE"
	GateClosed    Gate = "CLOSED"
)

// PreflightError is fatal and never routed through recovery.
type PreflightError struct {
	PhaseID string
	Reason  string
}

// Error implements the error interface.
func (e *PreflightError) Error() string {
	return fmt.Sprintf("phase %s preflight: %s", e.PhaseID, e.Reason)
}

// Unwrap lets callers match the sentinel with errors.Is().
func (e *PreflightError) Unwrap() error {
	return ixerrors.ErrPreflight
}

// EvaluateGate computes the execution gate for a phase.
func EvaluateGate(phase *domain.Phase) Gate {
	if !phase.Status.IsTerminal() {
		return GateOpen
	}
	if phase.HasActionableTasks() {
		return GateResumable
	}
	return GateClosed
}

// Preflight validates a phase before any state-mutating work. A nil phase
// means the active phase ID resolved to nothing.
func Preflight(phase *domain.Phase) (Gate, error) {
	if phase == nil {
		return GateClosed, &PreflightError{Reason: "active phase not found"}
	}
	if phase.BranchName == "" {
		return GateClosed, &PreflightError{PhaseID: phase.ID, Reason: "branch name is empty"}
	}
	gate := EvaluateGate(phase)
	if gate == GateClosed {
		return gate, &PreflightError{
			PhaseID: phase.ID,
			Reason:  fmt.Sprintf("status %s with no actionable tasks", phase.Status),
		}
	}
	return gate, nil
}
