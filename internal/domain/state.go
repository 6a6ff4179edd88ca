package domain

// ProjectState is the whole persisted project: phases, tasks, and recovery
// history. The state store owns serialization; the engine only ever sees
// snapshots.
type ProjectState struct {
	ProjectName      string                  `json:"projectName"`
	ActivePhaseID    string                  `json:"activePhaseId,omitempty"`
	Phases           []Phase                 `json:"phases"`
	RecoveryAttempts []RecoveryAttemptRecord `json:"recoveryAttempts,omitempty"`
}

// PhaseByID returns a pointer to the phase with the given ID, or nil.
func (s *ProjectState) PhaseByID(id string) *Phase {
	for i := range s.Phases {
		if s.Phases[i].ID == id {
			return &s.Phases[i]
		}
	}
	return nil
}

// ActivePhase resolves the phase selected by ActivePhaseID. An empty ID
// falls back to the first phase. An ID pointing at no phase returns nil,
// which preflight treats as fatal.
func (s *ProjectState) ActivePhase() *Phase {
	if s.ActivePhaseID == "" {
		if len(s.Phases) == 0 {
			return nil
		}
		return &s.Phases[0]
	}
	return s.PhaseByID(s.ActivePhaseID)
}
