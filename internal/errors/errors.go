// Package errors provides centralized error handling for ixado.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrCommandFailed indicates that a subprocess exited non-zero or was killed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates that a subprocess exceeded its timeout.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrGitOperation indicates that a git command failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrDirtyWorktree indicates uncommitted changes where a clean tree is required.
	ErrDirtyWorktree = errors.New("working tree is dirty")

	// ErrMissingCommit indicates that no staged changes exist to commit.
	ErrMissingCommit = errors.New("no staged changes to commit")

	// ErrAdapterInvocation indicates that an external AI CLI failed to execute
	// or returned a non-zero exit code.
	ErrAdapterInvocation = errors.New("adapter invocation failed")

	// ErrAdapterNotFound indicates that no adapter is registered for the requested ID.
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrInteractiveMode indicates that an adapter's argument set violates the
	// non-interactive execution policy.
	ErrInteractiveMode = errors.New("interactive mode violation")

	// ErrAuthorizationDenied indicates that the authorization evaluator denied an action.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrPolicyLoad indicates that the authorization policy could not be loaded.
	ErrPolicyLoad = errors.New("policy load failed")

	// ErrPreflight indicates that a phase failed its preflight checks.
	// Preflight failures are never routed through recovery.
	ErrPreflight = errors.New("phase preflight failed")

	// ErrRecoveryUnfixable indicates that the recovery adapter reported the
	// exception as unfixable.
	ErrRecoveryUnfixable = errors.New("exception reported unfixable")

	// ErrRecoveryExhausted indicates that all recovery attempts were consumed.
	ErrRecoveryExhausted = errors.New("recovery attempts exhausted")

	// ErrRecoveryContract indicates that the recovery adapter violated its
	// output contract (invalid JSON, extra fields, forbidden action).
	ErrRecoveryContract = errors.New("recovery contract violation")

	// ErrForbiddenAction indicates a recovery action rejected by policy guardrails.
	ErrForbiddenAction = errors.New("forbidden recovery action")

	// ErrPostconditionFailed indicates that a claimed fix did not hold on re-check.
	ErrPostconditionFailed = errors.New("recovery postcondition failed")

	// ErrCIFailed indicates that remote CI completed but one or more checks
	// did not pass.
	ErrCIFailed = errors.New("ci checks failed")

	// ErrCITimeout indicates that CI status polling exceeded the configured timeout.
	ErrCITimeout = errors.New("ci polling timeout")

	// ErrFixTaskFanOut indicates that a single mapping pass would create more
	// fix-tasks than the configured fan-out cap.
	ErrFixTaskFanOut = errors.New("CI_FIX fan-out cap exceeded")

	// ErrFixTaskDepth indicates that a fix-task chain exceeded the depth cap.
	ErrFixTaskDepth = errors.New("CI_FIX cascade depth cap exceeded")

	// ErrReviewContract indicates that the reviewer violated its output contract,
	// such as requesting changes without any comments.
	ErrReviewContract = errors.New("review contract violation")

	// ErrReviewRetriesExceeded indicates that the review/fix cycle ran out of retries.
	ErrReviewRetriesExceeded = errors.New("review max retries exceeded")

	// ErrLockHeld indicates that another live process holds the execution lock.
	ErrLockHeld = errors.New("execution lock held")

	// ErrHookDuplicateID indicates a lifecycle hook registered under an existing ID.
	ErrHookDuplicateID = errors.New("duplicate hook registration id")

	// ErrHookPayload indicates a lifecycle hook payload failed schema validation.
	ErrHookPayload = errors.New("invalid hook payload")

	// ErrPhaseNotFound indicates that the active phase ID points to no known phase.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrTaskNotFound indicates that a task ID points to no known task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrStateCorrupted indicates the on-disk project state is unreadable.
	ErrStateCorrupted = errors.New("project state corrupted")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrUnknownAction indicates an action string with no mapping in the
	// authorization action catalog.
	ErrUnknownAction = errors.New("missing action mapping")

	// ErrStopRequested indicates the phase loop was stopped by an external signal.
	ErrStopRequested = errors.New("stop requested")
)
