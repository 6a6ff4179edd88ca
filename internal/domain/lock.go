package domain

import "time"

// LockOwner identifies which orchestration source holds the execution lock.
type LockOwner string

// Lock owner tokens.
const (
	LockOwnerCLIPhaseRun LockOwner = "CLI_PHASE_RUN"
	LockOwnerWebAutoMode LockOwner = "WEB_AUTO_MODE"
)

// LockRecord is the JSON body of the execution lock file.
type LockRecord struct {
	PID         int       `json:"pid"`
	Owner       LockOwner `json:"owner"`
	ProjectName string    `json:"projectName"`
	AcquiredAt  time.Time `json:"acquiredAt"`
}
