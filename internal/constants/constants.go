package constants

import "time"

// Default tuning values for the phase-execution engine.
const (
	// DefaultAdapterTimeout bounds a single external CLI invocation.
	DefaultAdapterTimeout = 30 * time.Minute

	// DefaultProcessTimeout bounds ordinary git and host-CLI subprocesses.
	DefaultProcessTimeout = 2 * time.Minute

	// DefaultMaxRecoveryAttempts bounds the exception-recovery loop per decision point.
	DefaultMaxRecoveryAttempts = 3

	// DefaultMaxReviewRetries bounds fixer invocations in the CI-validation loop.
	DefaultMaxReviewRetries = 3

	// DefaultCIPollInterval is the sleep between CI status polls.
	DefaultCIPollInterval = 30 * time.Second

	// DefaultCIPollTimeout is the global bound on CI polling.
	DefaultCIPollTimeout = 30 * time.Minute

	// DefaultTerminalConfirmations is how many consecutive polls must agree on a
	// terminal overall state before it is trusted. Two confirmations ride out the
	// race between a rerun request and the first read after it.
	DefaultTerminalConfirmations = 2

	// DefaultMaxFixTaskFanOut caps new fix-tasks created in one mapping pass.
	DefaultMaxFixTaskFanOut = 3

	// DefaultCIFixMaxDepth caps how deeply fix-tasks may chain onto fix-tasks.
	DefaultCIFixMaxDepth = 2

	// DefaultHookTimeout bounds a single lifecycle hook handler.
	DefaultHookTimeout = 10 * time.Second

	// DefaultAdvanceCountdown is the auto-mode countdown between tasks, in seconds.
	DefaultAdvanceCountdown = 5

	// MaxTesterOutputLength is the truncation boundary for tester output embedded
	// in fix-task descriptions. Output at exactly this length is kept intact.
	MaxTesterOutputLength = 4000

	// MaxPRTitleLength is the hosting service's title limit.
	MaxPRTitleLength = 250

	// MaxPRBodyLength is the hosting service's body limit.
	MaxPRBodyLength = 60000

	// EventBusBufferSize is the per-subscriber channel buffer for the runtime
	// event bus. Publishing never blocks; full buffers drop.
	EventBusBufferSize = 100

	// EventDedupWindow is how long an identical event is suppressed.
	EventDedupWindow = 5 * time.Second
)
