package constants

// Authorization action strings consumed by the evaluator. Every privileged
// operation in the engine names one of these; an unknown string is denied
// with a missing-action-mapping reason.
const (
	ActionStatusRead = "status:read"
	ActionTasksRead  = "tasks:read"
	ActionLogsRead   = "logs:read"
	ActionUsageRead  = "usage:read"

	ActionExecutionStart = "execution:start"
	ActionExecutionStop  = "execution:stop"
	ActionExecutionNext  = "execution:next"

	ActionPhaseCreate = "phase:create"
	ActionTaskCreate  = "task:create"
	ActionTaskUpdate  = "task:update"

	ActionGitBranchCreate = "git:privileged:branch-create"
	ActionGitPush         = "git:privileged:push"
	ActionGitRebase       = "git:privileged:rebase"
	ActionGitPROpen       = "git:privileged:pr-open"
	ActionGitPRMerge      = "git:privileged:pr-merge"

	ActionConfigWrite  = "config:write"
	ActionAgentKill    = "agent:kill"
	ActionAgentRestart = "agent:restart"

	ActionOrchestratorCIIntegration     = "orchestrator:ci-integration:run"
	ActionOrchestratorExceptionRecovery = "orchestrator:exception-recovery:run"
	ActionOrchestratorCIValidation      = "orchestrator:ci-validation:run"
	ActionOrchestratorPhaseRun          = "orchestrator:phase:run"
)

// KnownActions is the catalog of every action string the engine may emit.
// The evaluator denies actions outside this set before consulting any policy.
//
//nolint:gochecknoglobals // Constant-like catalog
var KnownActions = map[string]struct{}{
	ActionStatusRead:                    {},
	ActionTasksRead:                     {},
	ActionLogsRead:                      {},
	ActionUsageRead:                     {},
	ActionExecutionStart:                {},
	ActionExecutionStop:                 {},
	ActionExecutionNext:                 {},
	ActionPhaseCreate:                   {},
	ActionTaskCreate:                    {},
	ActionTaskUpdate:                    {},
	ActionGitBranchCreate:               {},
	ActionGitPush:                       {},
	ActionGitRebase:                     {},
	ActionGitPROpen:                     {},
	ActionGitPRMerge:                    {},
	ActionConfigWrite:                   {},
	ActionAgentKill:                     {},
	ActionAgentRestart:                  {},
	ActionOrchestratorCIIntegration:     {},
	ActionOrchestratorExceptionRecovery: {},
	ActionOrchestratorCIValidation:      {},
	ActionOrchestratorPhaseRun:          {},
}
