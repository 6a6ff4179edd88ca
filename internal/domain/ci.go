package domain

// CheckState is the normalized state of a single CI check.
type CheckState string

// Check states. Blocking states are FAILURE, CANCELLED, and UNKNOWN.
const (
	CheckSuccess   CheckState = "SUCCESS"
	CheckFailure   CheckState = "FAILURE"
	CheckCancelled CheckState = "CANCELLED"
	CheckPending   CheckState = "PENDING"
	CheckUnknown   CheckState = "UNKNOWN"
)

// String returns the state as a string.
func (s CheckState) String() string {
	return string(s)
}

// Terminal reports whether the state will not change without a rerun.
func (s CheckState) Terminal() bool {
	return s != CheckPending
}

// Blocking reports whether the state blocks the phase from review.
func (s CheckState) Blocking() bool {
	switch s {
	case CheckFailure, CheckCancelled, CheckUnknown:
		return true
	case CheckSuccess, CheckPending:
		return false
	}
	return false
}

// CiCheck is one entry of the hosting service's status-check rollup.
type CiCheck struct {
	Name       string     `json:"name"`
	State      CheckState `json:"state"`
	DetailsURL string     `json:"detailsUrl,omitempty"`
}

// CiStatusSummary is the aggregate CI state for a PR at one poll.
type CiStatusSummary struct {
	Overall CheckState `json:"overall"`
	Checks  []CiCheck  `json:"checks"`
}

// BlockingChecks returns the checks whose state blocks the phase.
func (s CiStatusSummary) BlockingChecks() []CiCheck {
	blocking := make([]CiCheck, 0, len(s.Checks))
	for _, c := range s.Checks {
		if c.State.Blocking() {
			blocking = append(blocking, c)
		}
	}
	return blocking
}
