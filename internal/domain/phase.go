// Package domain defines the core data model for ixado.
//
// Types here are plain data carriers shared across the engine. They hold no
// behavior beyond validation and formatting helpers.
//
// IMPORTANT: This package may import internal/constants and internal/errors.
// It MUST NOT import any engine packages.
package domain

import (
	"github.com/ixado/ixado/internal/constants"
)

// Phase is the top-level unit of work. A phase owns its tasks exclusively,
// maps one-to-one to a branch, and ultimately to a pull request.
type Phase struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id"`
	// Name is the human-readable phase name.
	Name string `json:"name"`
	// BranchName is the git branch this phase works on. Never empty.
	BranchName string `json:"branchName"`
	// Status is the phase state machine position.
	Status constants.PhaseStatus `json:"status"`
	// PRURL is set only after the CI integrator succeeds.
	PRURL string `json:"prUrl,omitempty"`
	// CIStatusContext carries a human-readable note about the last CI outcome.
	CIStatusContext string `json:"ciStatusContext,omitempty"`
	// FailureKind records why the phase entered CI_FAILED.
	FailureKind constants.FailureKind `json:"failureKind,omitempty"`
	// Tasks is the ordered task sequence, indexed 1..N deterministically.
	Tasks []Task `json:"tasks"`
}

// TaskByID returns a pointer to the task with the given ID, or nil.
func (p *Phase) TaskByID(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// HasActionableTasks reports whether any task is still schedulable.
func (p *Phase) HasActionableTasks() bool {
	for i := range p.Tasks {
		if p.Tasks[i].Status.IsActionable() {
			return true
		}
	}
	return false
}

// CompletedTaskTitles returns the titles of DONE tasks in task order.
func (p *Phase) CompletedTaskTitles() []string {
	titles := make([]string, 0, len(p.Tasks))
	for i := range p.Tasks {
		if p.Tasks[i].Status == constants.TaskDone {
			titles = append(titles, p.Tasks[i].Title)
		}
	}
	return titles
}
