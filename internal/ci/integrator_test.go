package ci

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/testutil"
)

func testAuthorizer() *authz.Orchestrator {
	return authz.NewOrchestrator(nil, func() (*domain.AuthPolicy, error) {
		return authz.DefaultPolicy(), nil
	}, authz.NopAuditor{}, zerolog.Nop())
}

func phaseFixture() *domain.Phase {
	return &domain.Phase{
		ID:         "ph-1",
		Name:       "Implement the parser",
		BranchName: "feat/parser",
		Tasks: []domain.Task{
			{ID: "t-2", Title: "Wire the lexer", Status: constants.TaskDone},
			{ID: "t-1", Title: "Add token types", Status: constants.TaskDone},
			{ID: "t-3", Title: "Pending work", Status: constants.TaskTodo},
		},
	}
}

func scriptedHappyPath() *testutil.ScriptedRunner {
	runner := testutil.NewScriptedRunner()
	runner.On("git diff --cached --quiet", testutil.ScriptedResponse{ExitCode: 1})
	runner.On("git rev-parse --abbrev-ref HEAD", testutil.ScriptedResponse{Stdout: "feat/parser\n"})
	runner.On("gh pr create", testutil.ScriptedResponse{Stdout: "https://github.com/acme/repo/pull/42\n"})
	return runner
}

func TestIntegratorHappyPath(t *testing.T) {
	runner := scriptedHappyPath()
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{}, "cli", domain.RoleOwner, zerolog.Nop())

	prURL, err := integrator.Run(context.Background(), "/tmp/wt", phaseFixture())
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/repo/pull/42", prURL)

	lines := runner.CallLines()
	require.Len(t, lines, 6)
	assert.Equal(t, "git add -A", lines[0])
	assert.Equal(t, "git diff --cached --quiet", lines[1])
	assert.Equal(t, "git commit -m chore: finalize Implement the parser", lines[2])
	assert.Equal(t, "git rev-parse --abbrev-ref HEAD", lines[3])
	assert.Equal(t, "git push -u origin feat/parser", lines[4])
	assert.True(t, strings.HasPrefix(lines[5], "gh pr create"))
}

func TestIntegratorMissingCommit(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	// quiet diff exiting zero means nothing is staged
	runner.On("git diff --cached --quiet", testutil.ScriptedResponse{ExitCode: 0})
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{}, "cli", domain.RoleOwner, zerolog.Nop())

	_, err := integrator.Run(context.Background(), "", phaseFixture())
	assert.ErrorIs(t, err, ixerrors.ErrMissingCommit)
}

func TestIntegratorDeniedBeforeAnySubprocess(t *testing.T) {
	runner := scriptedHappyPath()
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{}, "cli", domain.RoleViewer, zerolog.Nop())

	_, err := integrator.Run(context.Background(), "", phaseFixture())
	assert.ErrorIs(t, err, ixerrors.ErrAuthorizationDenied)
	assert.Empty(t, runner.Calls())
}

func TestIntegratorPushDeniedForOperator(t *testing.T) {
	runner := scriptedHappyPath()
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{}, "cli", domain.RoleOperator, zerolog.Nop())

	_, err := integrator.Run(context.Background(), "", phaseFixture())
	assert.ErrorIs(t, err, ixerrors.ErrAuthorizationDenied)

	for _, line := range runner.CallLines() {
		assert.False(t, strings.HasPrefix(line, "git push"), line)
		assert.False(t, strings.HasPrefix(line, "gh pr create"), line)
	}
}

func TestIntegratorDraftLabelsAndAssignees(t *testing.T) {
	runner := scriptedHappyPath()
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{
		Draft:     true,
		Labels:    []string{"automated"},
		Assignees: []string{"octocat"},
	}, "cli", domain.RoleOwner, zerolog.Nop())

	_, err := integrator.Run(context.Background(), "", phaseFixture())
	require.NoError(t, err)

	var prLine string
	for _, line := range runner.CallLines() {
		if strings.HasPrefix(line, "gh pr create") {
			prLine = line
		}
	}
	assert.Contains(t, prLine, "--draft")
	assert.Contains(t, prLine, "--label automated")
	assert.Contains(t, prLine, "--assignee octocat")
}

func TestMarkReady(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	integrator := NewIntegrator(runner, testAuthorizer(), IntegratorConfig{}, "cli", domain.RoleOwner, zerolog.Nop())

	require.NoError(t, integrator.MarkReady(context.Background(), "", "https://example.com/pr/1"))
	require.Len(t, runner.Calls(), 1)
	assert.Equal(t, []string{"pr", "ready", "https://example.com/pr/1"}, runner.Calls()[0].Args)
}

func TestPRTitleDerivation(t *testing.T) {
	assert.Equal(t, "Phase one two", PRTitle("  Phase one\ntwo  "))

	long := strings.Repeat("x", constants.MaxPRTitleLength+10)
	assert.Len(t, PRTitle(long), constants.MaxPRTitleLength)
}

func TestPRBodySortsCompletedTasks(t *testing.T) {
	body := PRBody(phaseFixture())

	assert.Contains(t, body, "## Phase: Implement the parser")
	addIdx := strings.Index(body, "Add token types")
	wireIdx := strings.Index(body, "Wire the lexer")
	assert.Greater(t, wireIdx, addIdx)
	assert.NotContains(t, body, "Pending work")
}

func TestResolveTemplateLongestPrefixWins(t *testing.T) {
	integrator := NewIntegrator(nil, nil, IntegratorConfig{
		TemplateMappings: []TemplateMapping{
			{BranchPrefix: "feat/", TemplatePath: "feat.md"},
			{BranchPrefix: "feat/parser", TemplatePath: "parser.md"},
		},
		DefaultTemplate: "default.md",
	}, "", domain.RoleOwner, zerolog.Nop())

	template, ok := integrator.resolveTemplate("feat/parser-v2")
	require.True(t, ok)
	assert.Equal(t, "parser.md", template)

	template, ok = integrator.resolveTemplate("fix/crash")
	require.True(t, ok)
	assert.Equal(t, "default.md", template)
}
