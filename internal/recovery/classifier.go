// Package recovery implements the exception-recovery loop.
//
// A classified engine exception is handed to an AI adapter with a strict
// output contract, the claimed fix is checked against policy guardrails, and
// a category-specific postcondition confirms the fix actually holds before
// the attempt counts as successful.
package recovery

import (
	"errors"
	"strings"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// Substring markers checked case-insensitively against the combined error
// message and OS error code. First match wins, in declaration order.
var failureMarkers = []struct {
	kind    domain.AdapterFailureKind
	markers []string
}{
	{domain.FailureAuth, []string{"auth", "unauthorized", "401", "api key", "credential"}},
	{domain.FailureMissingBinary, []string{"enoent", "executable file not found", "command not found", "no such file or directory"}},
	{domain.FailureTimeout, []string{"timeout", "timed out", "deadline exceeded", "etimedout"}},
	{domain.FailureNetwork, []string{"econnrefused", "econnreset", "enotfound", "eai_again", "network", "socket hang up"}},
}

// ClassifyAdapterFailure maps an adapter error message plus optional OS error
// code to a failure kind. Anything unmatched is unknown, which stays
// recoverable.
func ClassifyAdapterFailure(message, code string) domain.AdapterFailureKind {
	haystack := strings.ToLower(message + " " + code)
	for _, entry := range failureMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(haystack, marker) {
				return entry.kind
			}
		}
	}
	return domain.FailureUnknown
}

// Classify converts an engine error into typed exception metadata for
// recovery routing.
func Classify(err error, phaseID, taskID string) domain.ExceptionMetadata {
	meta := domain.ExceptionMetadata{
		Category: domain.ExceptionUnknown,
		Message:  err.Error(),
		PhaseID:  phaseID,
		TaskID:   taskID,
	}

	switch {
	case errors.Is(err, ixerrors.ErrDirtyWorktree):
		meta.Category = domain.ExceptionDirtyWorktree
	case errors.Is(err, ixerrors.ErrMissingCommit):
		meta.Category = domain.ExceptionMissingCommit
	case errors.Is(err, ixerrors.ErrAdapterInvocation), errors.Is(err, ixerrors.ErrCommandTimeout):
		meta.Category = domain.ExceptionAgentFailure
		meta.AdapterFailureKind = ClassifyAdapterFailure(err.Error(), "")
		if errors.Is(err, ixerrors.ErrCommandTimeout) {
			meta.AdapterFailureKind = domain.FailureTimeout
		}
	}

	return meta
}
