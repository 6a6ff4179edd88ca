package phase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// Brancher performs the git operations of the branching step.
type Brancher struct {
	runner procrunner.Runner
	cwd    string
	logger zerolog.Logger
}

// NewBrancher creates a brancher bound to a working directory.
func NewBrancher(runner procrunner.Runner, cwd string, logger zerolog.Logger) *Brancher {
	return &Brancher{runner: runner, cwd: cwd, logger: logger}
}

func (b *Brancher) git(ctx context.Context, args ...string) (*procrunner.Result, error) {
	return b.runner.Run(ctx, procrunner.Request{Command: "git", Args: args, Dir: b.cwd})
}

// EnsureCleanWorktree fails with ErrDirtyWorktree when uncommitted changes
// exist.
func (b *Brancher) EnsureCleanWorktree(ctx context.Context) error {
	result, err := b.git(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("%w: status: %w", ixerrors.ErrGitOperation, err)
	}
	if strings.TrimSpace(result.Stdout) != "" {
		return fmt.Errorf("%w: %d entries in git status", ixerrors.ErrDirtyWorktree,
			len(strings.Split(strings.TrimSpace(result.Stdout), "\n")))
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (b *Brancher) CurrentBranch(ctx context.Context) (string, error) {
	result, err := b.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: rev-parse: %w", ixerrors.ErrGitOperation, err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// BranchExists reports whether a local branch exists.
func (b *Brancher) BranchExists(ctx context.Context, branch string) bool {
	_, err := b.git(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// EnterBranch puts the worktree on the phase branch: stay if already there,
// otherwise checkout, and if checkout fails create the branch from HEAD.
func (b *Brancher) EnterBranch(ctx context.Context, branch string) error {
	current, err := b.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == branch {
		return nil
	}

	if _, err := b.git(ctx, "checkout", branch); err == nil {
		b.logger.Info().Str("branch", branch).Msg("checked out phase branch")
		return nil
	}

	if _, err := b.git(ctx, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("%w: create branch %s: %w", ixerrors.ErrGitOperation, branch, err)
	}
	b.logger.Info().Str("branch", branch).Msg("created phase branch from HEAD")
	return nil
}

// Diff returns the phase's working diff against the base branch.
func (b *Brancher) Diff(ctx context.Context, baseBranch string) (string, error) {
	result, err := b.git(ctx, "diff", baseBranch+"...HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: diff: %w", ixerrors.ErrGitOperation, err)
	}
	return result.Stdout, nil
}
