package domain

import "time"

// RecoveryStatus is the adapter's verdict on a recovery attempt.
type RecoveryStatus string

// Recovery status values.
const (
	RecoveryFixed     RecoveryStatus = "fixed"
	RecoveryUnfixable RecoveryStatus = "unfixable"
)

// Valid reports whether the status is one of the two allowed values.
func (s RecoveryStatus) Valid() bool {
	return s == RecoveryFixed || s == RecoveryUnfixable
}

// RecoveryResult is the strict-schema JSON object the recovery adapter must
// return. Extra fields are rejected at parse time.
type RecoveryResult struct {
	Status       RecoveryStatus `json:"status"`
	Reasoning    string         `json:"reasoning"`
	ActionsTaken []string       `json:"actionsTaken"`
	FilesTouched []string       `json:"filesTouched"`
}

// RecoveryAttemptRecord is the persisted outcome of one recovery attempt.
type RecoveryAttemptRecord struct {
	ID            string            `json:"id"`
	OccurredAt    time.Time         `json:"occurredAt"`
	AttemptNumber int               `json:"attemptNumber"`
	Exception     ExceptionMetadata `json:"exception"`
	Result        RecoveryResult    `json:"result"`
}
