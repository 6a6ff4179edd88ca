package domain

// ExceptionCategory classifies an engine exception for recovery routing.
type ExceptionCategory string

// Exception categories. UNKNOWN is never recoverable.
const (
	ExceptionDirtyWorktree ExceptionCategory = "DIRTY_WORKTREE"
	ExceptionMissingCommit ExceptionCategory = "MISSING_COMMIT"
	ExceptionAgentFailure  ExceptionCategory = "AGENT_FAILURE"
	ExceptionUnknown       ExceptionCategory = "UNKNOWN"
)

// String returns the category as a string.
func (c ExceptionCategory) String() string {
	return string(c)
}

// AdapterFailureKind refines AGENT_FAILURE exceptions by cause.
type AdapterFailureKind string

// Adapter failure kinds. Auth and missing-binary need a human; the rest may
// be retried through recovery.
const (
	FailureAuth          AdapterFailureKind = "auth"
	FailureNetwork       AdapterFailureKind = "network"
	FailureMissingBinary AdapterFailureKind = "missing-binary"
	FailureTimeout       AdapterFailureKind = "timeout"
	FailureUnknown       AdapterFailureKind = "unknown"
)

// String returns the failure kind as a string.
func (k AdapterFailureKind) String() string {
	return string(k)
}

// ExceptionMetadata is the typed form of a classified engine exception.
type ExceptionMetadata struct {
	Category           ExceptionCategory  `json:"category"`
	Message            string             `json:"message"`
	PhaseID            string             `json:"phaseId,omitempty"`
	TaskID             string             `json:"taskId,omitempty"`
	AdapterFailureKind AdapterFailureKind `json:"adapterFailureKind,omitempty"`
}

// Recoverable reports whether the exception may be routed through the
// recovery loop. UNKNOWN is never recoverable; AGENT_FAILURE with auth or
// missing-binary needs a human.
func (m ExceptionMetadata) Recoverable() bool {
	switch m.Category {
	case ExceptionDirtyWorktree, ExceptionMissingCommit:
		return true
	case ExceptionAgentFailure:
		return m.AdapterFailureKind != FailureAuth && m.AdapterFailureKind != FailureMissingBinary
	case ExceptionUnknown:
		return false
	}
	return false
}
