// Package ci integrates a finished phase with the remote hosting service:
// commit and push the work, open a pull request, poll the status-check
// rollup, and map failing checks to targeted fix-tasks.
package ci

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// TemplateMapping binds a branch prefix to a PR body template file.
type TemplateMapping struct {
	BranchPrefix string `json:"branchPrefix" mapstructure:"branch_prefix"`
	TemplatePath string `json:"templatePath" mapstructure:"template_path"`
}

// IntegratorConfig tunes PR creation.
type IntegratorConfig struct {
	Draft            bool
	Labels           []string
	Assignees        []string
	TemplateMappings []TemplateMapping
	DefaultTemplate  string
}

// Integrator drives the commit-push-PR sequence. Every privileged step is
// independently authorized; a denial aborts before any subprocess is spawned.
type Integrator struct {
	runner     procrunner.Runner
	authorizer *authz.Orchestrator
	config     IntegratorConfig
	actor      string
	role       domain.Role
	logger     zerolog.Logger
}

// NewIntegrator wires a CI integrator.
func NewIntegrator(runner procrunner.Runner, authorizer *authz.Orchestrator, config IntegratorConfig, actor string, role domain.Role, logger zerolog.Logger) *Integrator {
	return &Integrator{
		runner:     runner,
		authorizer: authorizer,
		config:     config,
		actor:      actor,
		role:       role,
		logger:     logger,
	}
}

// Run finalizes the phase's work and opens the PR. Returns the PR URL.
func (i *Integrator) Run(ctx context.Context, cwd string, phase *domain.Phase) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	if err := i.authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:  i.actor,
		Role:   i.role,
		Action: constants.ActionOrchestratorCIIntegration,
		Target: phase.ID,
	}); err != nil {
		return "", err
	}

	if _, err := i.git(ctx, cwd, "add", "-A"); err != nil {
		return "", fmt.Errorf("%w: stage all: %w", ixerrors.ErrGitOperation, err)
	}

	staged, err := i.hasStagedChanges(ctx, cwd)
	if err != nil {
		return "", err
	}
	if !staged {
		return "", fmt.Errorf("%w: nothing staged for phase %q", ixerrors.ErrMissingCommit, phase.Name)
	}

	if _, err := i.git(ctx, cwd, "commit", "-m", "chore: finalize "+phase.Name); err != nil {
		return "", fmt.Errorf("%w: finalize commit: %w", ixerrors.ErrGitOperation, err)
	}

	branchResult, err := i.git(ctx, cwd, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: read branch: %w", ixerrors.ErrGitOperation, err)
	}
	branch := strings.TrimSpace(branchResult.Stdout)

	if err := i.authorize(constants.ActionGitPush, phase.ID, "git push -u origin "+branch); err != nil {
		return "", err
	}
	if _, err := i.git(ctx, cwd, "push", "-u", "origin", branch); err != nil {
		return "", fmt.Errorf("%w: push: %w", ixerrors.ErrGitOperation, err)
	}

	if err := i.authorize(constants.ActionGitPROpen, phase.ID, "gh pr create"); err != nil {
		return "", err
	}

	args := i.prCreateArgs(phase, branch)
	result, err := i.runner.Run(ctx, procrunner.Request{Command: "gh", Args: args, Dir: cwd})
	if err != nil {
		return "", fmt.Errorf("pr create: %w", err)
	}

	prURL := lastLine(result.Stdout)
	i.logger.Info().Str("pr_url", prURL).Str("branch", branch).Msg("pull request created")
	return prURL, nil
}

// MarkReady flips a draft PR to ready for review. Authorized independently.
func (i *Integrator) MarkReady(ctx context.Context, cwd, prURL string) error {
	if err := i.authorize(constants.ActionGitPROpen, prURL, "gh pr ready "+prURL); err != nil {
		return err
	}
	if _, err := i.runner.Run(ctx, procrunner.Request{Command: "gh", Args: []string{"pr", "ready", prURL}, Dir: cwd}); err != nil {
		return fmt.Errorf("pr ready: %w", err)
	}
	i.logger.Info().Str("pr_url", prURL).Msg("pull request marked ready")
	return nil
}

func (i *Integrator) authorize(action, target, command string) error {
	return i.authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:   i.actor,
		Role:    i.role,
		Action:  action,
		Target:  target,
		Command: command,
	})
}

func (i *Integrator) git(ctx context.Context, cwd string, args ...string) (*procrunner.Result, error) {
	return i.runner.Run(ctx, procrunner.Request{Command: "git", Args: args, Dir: cwd})
}

// hasStagedChanges uses the quiet cached diff: exit 0 means nothing staged,
// exit 1 means staged changes exist.
func (i *Integrator) hasStagedChanges(ctx context.Context, cwd string) (bool, error) {
	_, err := i.git(ctx, cwd, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var procErr *procrunner.ProcessExecutionError
	if errors.As(err, &procErr) && procErr.Result != nil && procErr.Result.ExitCode == 1 {
		return true, nil
	}
	return false, fmt.Errorf("%w: staged check: %w", ixerrors.ErrGitOperation, err)
}

func (i *Integrator) prCreateArgs(phase *domain.Phase, branch string) []string {
	args := []string{"pr", "create", "--title", PRTitle(phase.Name)}

	if template, ok := i.resolveTemplate(branch); ok {
		args = append(args, "--body-file", template)
	} else {
		args = append(args, "--body", PRBody(phase))
	}
	if i.config.Draft {
		args = append(args, "--draft")
	}
	for _, label := range i.config.Labels {
		args = append(args, "--label", label)
	}
	for _, assignee := range i.config.Assignees {
		args = append(args, "--assignee", assignee)
	}
	return args
}

// resolveTemplate picks the body template for a head branch. Mappings are
// tried longest prefix first; the default template, when configured, backs
// them all.
func (i *Integrator) resolveTemplate(headBranch string) (string, bool) {
	mappings := make([]TemplateMapping, len(i.config.TemplateMappings))
	copy(mappings, i.config.TemplateMappings)
	sort.SliceStable(mappings, func(a, b int) bool {
		return len(mappings[a].BranchPrefix) > len(mappings[b].BranchPrefix)
	})
	for _, m := range mappings {
		if strings.HasPrefix(headBranch, m.BranchPrefix) {
			return m.TemplatePath, true
		}
	}
	if i.config.DefaultTemplate != "" {
		return i.config.DefaultTemplate, true
	}
	return "", false
}

// PRTitle derives the PR title from the phase name: newlines stripped,
// trimmed, capped at the title length limit.
func PRTitle(phaseName string) string {
	title := strings.NewReplacer("\n", " ", "\r", " ").Replace(phaseName)
	title = strings.TrimSpace(title)
	if len(title) > constants.MaxPRTitleLength {
		title = title[:constants.MaxPRTitleLength]
	}
	return title
}

// PRBody renders the markdown PR body with the sorted completed-task list.
func PRBody(phase *domain.Phase) string {
	titles := phase.CompletedTaskTitles()
	sort.Strings(titles)

	var b strings.Builder
	fmt.Fprintf(&b, "## Phase: %s\n\n", phase.Name)
	if len(titles) > 0 {
		b.WriteString("### Completed tasks\n\n")
		for _, title := range titles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
		b.WriteString("\n")
	}
	b.WriteString("---\nOpened automatically by ixado.\n")

	body := b.String()
	if len(body) > constants.MaxPRBodyLength {
		body = body[:constants.MaxPRBodyLength]
	}
	return body
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
