package recovery

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/testutil"
)

func allowAllAuthorizer() *authz.Orchestrator {
	return authz.NewOrchestrator(nil, func() (*domain.AuthPolicy, error) {
		return authz.DefaultPolicy(), nil
	}, authz.NopAuditor{}, zerolog.Nop())
}

type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) Verify(context.Context, domain.ExceptionCategory) error {
	v.calls++
	return v.err
}

type workCapture struct {
	requests []domain.WorkRequest
	results  []domain.WorkResult
}

func (w *workCapture) run(_ context.Context, req domain.WorkRequest) (*domain.WorkResult, error) {
	w.requests = append(w.requests, req)
	result := domain.WorkResult{}
	if len(w.results) > 0 {
		result = w.results[0]
		w.results = w.results[1:]
	}
	return &result, nil
}

func dirtyWorktreeRequest() Request {
	return Request{
		Assignee: domain.AdapterClaude,
		Exception: domain.ExceptionMetadata{
			Category: domain.ExceptionDirtyWorktree,
			Message:  "working tree is dirty",
			PhaseID:  "ph-1",
		},
		Actor: "cli",
		Role:  domain.RoleOwner,
	}
}

func TestRunRecoveryDirtyWorktreeFirstAttemptNudge(t *testing.T) {
	work := &workCapture{}
	verifier := &stubVerifier{}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, verifier, zerolog.Nop())

	record, err := loop.RunExceptionRecovery(context.Background(), dirtyWorktreeRequest(), 1)
	require.NoError(t, err)

	require.Len(t, work.requests, 1)
	assert.Equal(t, DirtyWorktreeNudge, work.requests[0].Prompt)
	assert.True(t, work.requests[0].Resume)
	assert.Equal(t, domain.RecoveryFixed, record.Result.Status)
	assert.Equal(t, 1, verifier.calls)
}

func TestRunRecoverySecondAttemptUsesContractPrompt(t *testing.T) {
	work := &workCapture{results: []domain.WorkResult{
		{Stdout: `{"status":"fixed","reasoning":"committed","actionsTaken":["git add -A","git commit -m wip"],"filesTouched":[]}`},
	}}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	_, err := loop.RunExceptionRecovery(context.Background(), dirtyWorktreeRequest(), 2)
	require.NoError(t, err)

	require.Len(t, work.requests, 1)
	assert.False(t, work.requests[0].Resume)
	assert.Contains(t, work.requests[0].Prompt, `"status": "fixed" | "unfixable"`)
	assert.Contains(t, work.requests[0].Prompt, "DIRTY_WORKTREE")
}

func TestRunRecoveryForbiddenActionFailsAttempt(t *testing.T) {
	work := &workCapture{results: []domain.WorkResult{
		{Stdout: `{"status":"fixed","reasoning":"pushed it","actionsTaken":["git push origin main"],"filesTouched":[]}`},
	}}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	record, err := loop.RunExceptionRecovery(context.Background(), dirtyWorktreeRequest(), 2)
	assert.ErrorIs(t, err, ixerrors.ErrForbiddenAction)
	assert.NotNil(t, record)
}

func TestRunRecoveryPostconditionFailureCountsAsFailed(t *testing.T) {
	work := &workCapture{}
	verifier := &stubVerifier{err: ixerrors.ErrPostconditionFailed}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, verifier, zerolog.Nop())

	_, err := loop.RunExceptionRecovery(context.Background(), dirtyWorktreeRequest(), 1)
	assert.ErrorIs(t, err, ixerrors.ErrPostconditionFailed)
}

func TestRunRecoveryDeniedByPolicy(t *testing.T) {
	work := &workCapture{}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	req := dirtyWorktreeRequest()
	req.Role = domain.RoleViewer

	_, err := loop.RunExceptionRecovery(context.Background(), req, 1)
	assert.ErrorIs(t, err, ixerrors.ErrAuthorizationDenied)
	assert.Empty(t, work.requests)
}

func TestAttemptRecoveryExhaustion(t *testing.T) {
	work := &workCapture{results: []domain.WorkResult{
		{Stdout: "not json"},
		{Stdout: "still not json"},
		{Stdout: "never json"},
	}}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	req := dirtyWorktreeRequest()
	req.Exception.Category = domain.ExceptionMissingCommit

	var recorded []domain.RecoveryAttemptRecord
	err := loop.AttemptExceptionRecovery(context.Background(), req, 3, func(r domain.RecoveryAttemptRecord) error {
		recorded = append(recorded, r)
		return nil
	})

	assert.ErrorIs(t, err, ixerrors.ErrRecoveryExhausted)
	assert.Len(t, work.requests, 3)
}

func TestAttemptRecoveryUnfixableStopsEarly(t *testing.T) {
	work := &workCapture{results: []domain.WorkResult{
		{Stdout: `{"status":"unfixable","reasoning":"needs credentials","actionsTaken":[],"filesTouched":[]}`},
	}}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	req := dirtyWorktreeRequest()
	req.Exception.Category = domain.ExceptionMissingCommit

	err := loop.AttemptExceptionRecovery(context.Background(), req, 3, nil)
	assert.ErrorIs(t, err, ixerrors.ErrRecoveryUnfixable)
	assert.Len(t, work.requests, 1)
}

func TestAttemptRecoveryRejectsUnrecoverable(t *testing.T) {
	work := &workCapture{}
	loop := NewLoop(allowAllAuthorizer(), nil, work.run, &stubVerifier{}, zerolog.Nop())

	req := dirtyWorktreeRequest()
	req.Exception = domain.ExceptionMetadata{
		Category:           domain.ExceptionAgentFailure,
		AdapterFailureKind: domain.FailureAuth,
	}

	err := loop.AttemptExceptionRecovery(context.Background(), req, 3, nil)
	assert.ErrorIs(t, err, ixerrors.ErrRecoveryUnfixable)
	assert.Empty(t, work.requests)
}

func TestPostconditionVerifierCleanAndDirty(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	runner.On("git status --porcelain", testutil.ScriptedResponse{Stdout: ""})
	verifier := NewPostconditionVerifier(runner, "/tmp/wt")
	assert.NoError(t, verifier.Verify(context.Background(), domain.ExceptionDirtyWorktree))

	runner = testutil.NewScriptedRunner()
	runner.On("git status --porcelain", testutil.ScriptedResponse{Stdout: " M file.ts\n"})
	verifier = NewPostconditionVerifier(runner, "/tmp/wt")
	assert.ErrorIs(t, verifier.Verify(context.Background(), domain.ExceptionDirtyWorktree), ixerrors.ErrPostconditionFailed)
}
