package domain

import (
	"github.com/ixado/ixado/internal/constants"
)

// AdapterID identifies a supported external CLI. The enumeration is closed;
// AdapterMock exists for testing only.
type AdapterID string

// Supported adapter identifiers. AdapterUnassigned means the task falls back
// to the configured default assignee.
const (
	AdapterUnassigned AdapterID = ""
	AdapterClaude     AdapterID = "claude"
	AdapterCodex      AdapterID = "codex"
	AdapterGemini     AdapterID = "gemini"
	AdapterMock       AdapterID = "mock-cli"
)

// String returns the adapter ID as a string.
func (a AdapterID) String() string {
	if a == AdapterUnassigned {
		return "unassigned"
	}
	return string(a)
}

// Valid reports whether the ID names a known adapter or is unassigned.
func (a AdapterID) Valid() bool {
	switch a {
	case AdapterUnassigned, AdapterClaude, AdapterCodex, AdapterGemini, AdapterMock:
		return true
	}
	return false
}

// Task is a single unit of adapter work inside a phase.
type Task struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id"`
	// Title is the short task summary. Fix-task titles double as dedup keys.
	Title string `json:"title"`
	// Description is the full prompt context handed to the adapter.
	Description string `json:"description"`
	// Status is the task lifecycle state.
	Status constants.TaskStatus `json:"status"`
	// Assignee selects the adapter; AdapterUnassigned falls back to config.
	Assignee AdapterID `json:"assignee"`
	// Dependencies lists task IDs this task was derived from. Fix-task chains
	// are walked through this field for the depth cap.
	Dependencies []string `json:"dependencies,omitempty"`
	// ErrorLogs holds truncated output from the last failed run.
	ErrorLogs string `json:"errorLogs,omitempty"`
	// ErrorCategory is the classified exception category of the last failure.
	ErrorCategory ExceptionCategory `json:"errorCategory,omitempty"`
	// AdapterFailureKind refines AGENT_FAILURE categories.
	AdapterFailureKind AdapterFailureKind `json:"adapterFailureKind,omitempty"`
	// ResultContext carries the adapter's final summary for downstream steps.
	ResultContext string `json:"resultContext,omitempty"`
}

// DependsOn reports whether the task lists the given ID as a dependency.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
