package domain

// WorkRequest asks the execution backend to run one adapter session on behalf
// of the engine. The engine never spawns agent processes directly; all agent
// work flows through this channel so that the backend can attach session
// bookkeeping and streaming.
type WorkRequest struct {
	Assignee AdapterID `json:"assignee"`
	Prompt   string    `json:"prompt"`
	PhaseID  string    `json:"phaseId,omitempty"`
	TaskID   string    `json:"taskId,omitempty"`
	Resume   bool      `json:"resume,omitempty"`
}

// WorkResult is the captured output of one internal work run.
type WorkResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}
