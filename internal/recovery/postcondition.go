package recovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// PostconditionVerifier re-checks, per exception category, that a claimed fix
// really holds. The adapter's word is never taken on its own.
type PostconditionVerifier struct {
	runner procrunner.Runner
	cwd    string
}

// NewPostconditionVerifier creates a verifier bound to a working directory.
func NewPostconditionVerifier(runner procrunner.Runner, cwd string) *PostconditionVerifier {
	return &PostconditionVerifier{runner: runner, cwd: cwd}
}

// Verify confirms the category's postcondition. Categories without a
// verifiable condition pass.
func (v *PostconditionVerifier) Verify(ctx context.Context, category domain.ExceptionCategory) error {
	switch category {
	case domain.ExceptionDirtyWorktree, domain.ExceptionMissingCommit:
		return v.verifyCleanWorktree(ctx)
	case domain.ExceptionAgentFailure, domain.ExceptionUnknown:
		return nil
	}
	return nil
}

func (v *PostconditionVerifier) verifyCleanWorktree(ctx context.Context) error {
	result, err := v.runner.Run(ctx, procrunner.Request{
		Command: "git",
		Args:    []string{"status", "--porcelain"},
		Dir:     v.cwd,
	})
	if err != nil {
		return fmt.Errorf("%w: worktree re-check failed: %w", ixerrors.ErrPostconditionFailed, err)
	}
	if strings.TrimSpace(result.Stdout) != "" {
		return fmt.Errorf("%w: worktree still dirty after claimed fix", ixerrors.ErrPostconditionFailed)
	}
	return nil
}
