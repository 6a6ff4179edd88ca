package phase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/ci"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/events"
	"github.com/ixado/ixado/internal/hook"
	"github.com/ixado/ixado/internal/recovery"
	"github.com/ixado/ixado/internal/review"
	"github.com/ixado/ixado/internal/schedule"
	"github.com/ixado/ixado/internal/state"
	"github.com/ixado/ixado/internal/tester"
)

// Config tunes one phase run.
type Config struct {
	Cwd                 string
	Actor               string
	Role                domain.Role
	DefaultAssignee     domain.AdapterID
	CIEnabled           bool
	CIBaseBranch        string
	PRDraft             bool
	MarkReadyOnApproval bool
	MaxRecoveryAttempts int
	MaxFixTaskFanOut    int
	CIFixMaxDepth       int
	Tester              tester.Config
}

// Deps are the runner's collaborators. All are required except Hooks and Bus.
type Deps struct {
	Store      state.Store
	Recovery   *recovery.Loop
	Tester     *tester.Workflow
	Integrator *ci.Integrator
	Poller     *ci.Poller
	Review     *review.Loop
	Brancher   *Brancher
	Hooks      *hook.Registry
	Bus        *events.Bus
	Gate       AdvanceGate
	Control    *LoopControl
	Authorizer *authz.Orchestrator
	Logger     zerolog.Logger
}

// Runner drives one phase from preflight to its terminal status.
type Runner struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
}

// NewRunner creates a phase runner.
func NewRunner(cfg Config, deps Deps) *Runner {
	if cfg.MaxRecoveryAttempts <= 0 {
		cfg.MaxRecoveryAttempts = constants.DefaultMaxRecoveryAttempts
	}
	if deps.Control == nil {
		deps.Control = NewLoopControl()
	}
	if deps.Gate == nil {
		deps.Gate = &AutoGate{Control: deps.Control}
	}
	return &Runner{cfg: cfg, deps: deps, log: deps.Logger}
}

// Run executes the phase. The returned error is nil only when the phase
// reached DONE or READY_FOR_REVIEW.
func (r *Runner) Run(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if err := r.deps.Authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:  r.cfg.Actor,
		Role:   r.cfg.Role,
		Action: constants.ActionOrchestratorPhaseRun,
	}); err != nil {
		return err
	}

	reconciled, err := r.deps.Store.ReconcileInProgressTasks()
	if err != nil {
		return fmt.Errorf("reconcile tasks: %w", err)
	}
	if reconciled > 0 {
		r.log.Info().Int("count", reconciled).Msg("reset in-progress tasks from a previous run")
	}

	projectState, err := r.deps.Store.GetState()
	if err != nil {
		return err
	}
	phase := projectState.ActivePhase()

	gate, err := Preflight(phase)
	if err != nil {
		return err
	}
	if gate == GateResumable {
		r.log.Info().Str("phase", phase.Name).Str("status", phase.Status.String()).Msg("resuming terminal phase with actionable tasks")
	}

	if err := r.checkBaseBranch(ctx, phase); err != nil {
		return err
	}

	if err := r.enterBranching(ctx, phase); err != nil {
		return r.failPhase(ctx, phase.ID, constants.FailureKindRecovery, "branching: "+err.Error(), err)
	}

	if err := r.setStatus(phase.ID, constants.PhaseCoding, "", ""); err != nil {
		return err
	}

	if err := r.taskLoop(ctx, phase.ID); err != nil {
		return err
	}

	if r.deps.Control.Stopped() {
		r.publish(events.Event{
			Family: events.FamilyTaskLifecycle, Type: "phase.stopped", Level: events.LevelImportant,
			PhaseID: phase.ID, Message: "stop requested",
		})
		return ixerrors.ErrStopRequested
	}

	if !r.cfg.CIEnabled {
		if err := r.setStatus(phase.ID, constants.PhaseDone, "", ""); err != nil {
			return err
		}
		r.publishTerminal(phase.ID, "success", "phase complete, ci disabled")
		return nil
	}

	return r.ciPath(ctx, phase.ID)
}

// checkBaseBranch enforces the base-branch precondition: a phase branch that
// does not exist yet may only be created from the CI base branch.
func (r *Runner) checkBaseBranch(ctx context.Context, phase *domain.Phase) error {
	if r.deps.Brancher.BranchExists(ctx, phase.BranchName) {
		return nil
	}
	head, err := r.deps.Brancher.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if r.cfg.CIBaseBranch != "" && head != r.cfg.CIBaseBranch {
		return &PreflightError{
			PhaseID: phase.ID,
			Reason:  fmt.Sprintf("branch %s does not exist and HEAD is %s, not base %s", phase.BranchName, head, r.cfg.CIBaseBranch),
		}
	}
	return nil
}

// enterBranching moves to BRANCHING and puts the worktree on the phase
// branch, routing dirty-tree failures through recovery.
func (r *Runner) enterBranching(ctx context.Context, phase *domain.Phase) error {
	if err := r.setStatus(phase.ID, constants.PhaseBranching, "", ""); err != nil {
		return err
	}

	if err := r.deps.Brancher.EnsureCleanWorktree(ctx); err != nil {
		if recErr := r.recover(ctx, err, phase.ID, ""); recErr != nil {
			return recErr
		}
		if err := r.deps.Brancher.EnsureCleanWorktree(ctx); err != nil {
			return err
		}
	}

	return r.deps.Brancher.EnterBranch(ctx, phase.BranchName)
}

// taskLoop runs scheduled tasks until none remain or a stop is requested.
func (r *Runner) taskLoop(ctx context.Context, phaseID string) error {
	for iteration := 0; ; iteration++ {
		if r.deps.Control.Stopped() {
			return nil
		}

		phase, err := r.loadPhase(phaseID)
		if err != nil {
			return err
		}

		idx := schedule.PickNextTask(phase.Tasks)
		if idx == -1 {
			return nil
		}

		if iteration > 0 {
			signal, err := r.deps.Gate.Await(ctx)
			if err != nil {
				return err
			}
			if signal == AdvanceStop {
				r.deps.Control.RequestStop()
				return nil
			}
		}

		task := phase.Tasks[idx]
		if err := r.runTaskStep(ctx, phase, idx); err != nil {
			return err
		}

		phase, err = r.loadPhase(phaseID)
		if err != nil {
			return err
		}
		if done := phase.TaskByID(task.ID); done != nil {
			if err := r.runTesterStep(ctx, phase, *done); err != nil {
				return err
			}
		}
	}
}

// runTaskStep executes one task, retrying through recovery on failure. A
// task gets maxRecoveryAttempts+1 total runs.
func (r *Runner) runTaskStep(ctx context.Context, phase *domain.Phase, idx int) error {
	task := phase.Tasks[idx]
	assignee := task.Assignee
	if assignee == domain.AdapterUnassigned {
		assignee = r.cfg.DefaultAssignee
	}

	r.dispatchHook(ctx, hook.BeforeTaskStart, hook.Payload{PhaseID: phase.ID, TaskID: task.ID, TaskTitle: task.Title})
	r.publish(events.Event{
		Family: events.FamilyTaskLifecycle, Type: "task.started", Level: events.LevelAll,
		PhaseID: phase.ID, TaskID: task.ID, Message: task.Title,
	})

	maxRuns := r.cfg.MaxRecoveryAttempts + 1
	for run := 0; run < maxRuns; run++ {
		projectState, err := r.deps.Store.StartActiveTaskAndWait(ctx, state.StartTaskRequest{
			TaskNumber: idx + 1,
			Assignee:   assignee,
			Resume:     run > 0,
		})
		if err != nil {
			return err
		}

		updated := projectState.PhaseByID(phase.ID).TaskByID(task.ID)
		if updated == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrTaskNotFound, task.ID)
		}

		switch updated.Status {
		case constants.TaskDone:
			r.dispatchHook(ctx, hook.AfterTaskDone, hook.Payload{PhaseID: phase.ID, TaskID: task.ID, TaskTitle: task.Title})
			r.publish(events.Event{
				Family: events.FamilyTaskLifecycle, Type: "task.done", Level: events.LevelAll,
				PhaseID: phase.ID, TaskID: task.ID, Message: task.Title,
			})
			return nil
		case constants.TaskFailed:
			failure := fmt.Errorf("%w: task %q: %s", ixerrors.ErrAdapterInvocation, updated.Title, updated.ErrorLogs)
			if run == maxRuns-1 {
				return r.failPhase(ctx, phase.ID, constants.FailureKindRecovery,
					"Recovery: attempts exhausted for task "+updated.Title, failure)
			}
			if err := r.recover(ctx, failure, phase.ID, task.ID); err != nil {
				return r.failPhase(ctx, phase.ID, constants.FailureKindRecovery,
					"Recovery: "+err.Error(), err)
			}
		case constants.TaskTodo, constants.TaskInProgress, constants.TaskCIFix:
			return fmt.Errorf("task %q finished in unexpected status %s", updated.Title, updated.Status)
		}
	}
	return nil
}

// runTesterStep runs the local test suite for a completed task. Tester
// failures close the phase after persisting the derived fix-task.
func (r *Runner) runTesterStep(ctx context.Context, phase *domain.Phase, trigger domain.Task) error {
	result, err := r.deps.Tester.Run(ctx, r.cfg.Cwd, r.cfg.Tester, trigger, func(fix domain.Task) error {
		return r.createFixTask(phase, trigger, fix)
	})
	if err != nil {
		if errors.Is(err, ixerrors.ErrFixTaskDepth) {
			return r.failPhase(ctx, phase.ID, constants.FailureKindGuardrails, err.Error(), err)
		}
		return err
	}

	if result.Verdict == tester.VerdictFailed {
		r.publish(events.Event{
			Family: events.FamilyTesterRecovery, Type: "tester.failed", Level: events.LevelImportant,
			PhaseID: phase.ID, TaskID: trigger.ID, Message: "local tests failed after " + trigger.Title,
		})
		failure := fmt.Errorf("%w: local tests failed after %q", ixerrors.ErrCIFailed, trigger.Title)
		return r.failPhase(ctx, phase.ID, constants.FailureKindTester, "tester failed after "+trigger.Title, failure)
	}
	return nil
}

// createFixTask persists a tester fix-task unless a duplicate exists. A task
// is a duplicate when it shares the title, depends on the same trigger, or
// shares any dependency with the proposal. The fix chain depth cap applies.
func (r *Runner) createFixTask(phase *domain.Phase, trigger domain.Task, fix domain.Task) error {
	for i := range phase.Tasks {
		existing := &phase.Tasks[i]
		if existing.Title == fix.Title || existing.DependsOn(trigger.ID) || sharesDependency(existing, &fix) {
			r.log.Info().Str("title", fix.Title).Msg("duplicate fix task suppressed")
			return nil
		}
	}

	if err := ci.CheckFixTaskDepth(fix.Dependencies, phase.Tasks, r.cfg.CIFixMaxDepth); err != nil {
		return err
	}

	_, err := r.deps.Store.CreateTask(state.CreateTaskRequest{
		PhaseID:      phase.ID,
		Title:        fix.Title,
		Description:  fix.Description,
		Assignee:     fix.Assignee,
		Dependencies: fix.Dependencies,
		Status:       fix.Status,
	})
	return err
}

func sharesDependency(a, b *domain.Task) bool {
	for _, dep := range b.Dependencies {
		if a.DependsOn(dep) {
			return true
		}
	}
	return false
}

// ciPath runs PR creation, CI polling, and either fix-task mapping or the
// review validation loop.
func (r *Runner) ciPath(ctx context.Context, phaseID string) error {
	if err := r.setStatus(phaseID, constants.PhaseCreatingPR, "", ""); err != nil {
		return err
	}

	phase, err := r.loadPhase(phaseID)
	if err != nil {
		return err
	}

	prURL, err := r.deps.Integrator.Run(ctx, r.cfg.Cwd, phase)
	if err != nil {
		if errors.Is(err, ixerrors.ErrDirtyWorktree) || errors.Is(err, ixerrors.ErrMissingCommit) {
			if recErr := r.recover(ctx, err, phaseID, ""); recErr == nil {
				prURL, err = r.deps.Integrator.Run(ctx, r.cfg.Cwd, phase)
			}
		}
		if err != nil {
			return r.failPhase(ctx, phaseID, constants.FailureKindRemoteCI, "pr creation: "+err.Error(), err)
		}
	}

	if err := r.deps.Store.SetPhasePrUrl(phaseID, prURL); err != nil {
		return err
	}
	r.publish(events.Event{
		Family: events.FamilyCIPRLifecycle, Type: "pr.created", Level: events.LevelImportant,
		PhaseID: phaseID, Message: prURL,
	})

	if err := r.setStatus(phaseID, constants.PhaseAwaitingCI, "", ""); err != nil {
		return err
	}

	summary, err := r.deps.Poller.Poll(ctx, r.cfg.Cwd, prURL)
	if err != nil {
		return r.failPhase(ctx, phaseID, constants.FailureKindRemoteCI, "ci polling: "+err.Error(), err)
	}

	if summary.Overall != domain.CheckSuccess {
		return r.mapCIFailure(ctx, phaseID, prURL, summary)
	}

	return r.validate(ctx, phaseID, prURL)
}

// mapCIFailure derives fix-tasks from the failed summary and closes the
// phase as CI_FAILED so it can be resumed.
func (r *Runner) mapCIFailure(ctx context.Context, phaseID, prURL string, summary *domain.CiStatusSummary) error {
	phase, err := r.loadPhase(phaseID)
	if err != nil {
		return err
	}

	mapping, err := ci.MapFixTasks(summary, prURL, phase.Tasks, r.cfg.MaxFixTaskFanOut)
	if err != nil {
		return r.failPhase(ctx, phaseID, constants.FailureKindGuardrails, err.Error(), err)
	}

	for _, fix := range mapping.Created {
		if _, err := r.deps.Store.CreateTask(state.CreateTaskRequest{
			PhaseID:     phaseID,
			Title:       fix.Title,
			Description: fix.Description,
			Status:      fix.Status,
		}); err != nil {
			return err
		}
	}

	r.log.Warn().Str("context", mapping.Context()).Msg("remote ci failed")
	failure := fmt.Errorf("%w: overall %s", ixerrors.ErrCIFailed, summary.Overall)
	if err := r.setStatus(phaseID, constants.PhaseCIFailed, constants.FailureKindRemoteCI, mapping.Context()); err != nil {
		return err
	}
	r.dispatchHook(ctx, hook.OnCIFailed, hook.Payload{PhaseID: phaseID, FailureKind: constants.FailureKindRemoteCI, Detail: mapping.Context()})
	r.publishTerminal(phaseID, "failure", mapping.Context())
	return failure
}

// validate runs the review loop against the phase diff and finishes the
// phase on approval.
func (r *Runner) validate(ctx context.Context, phaseID, prURL string) error {
	diff, err := r.deps.Brancher.Diff(ctx, r.cfg.CIBaseBranch)
	if err != nil {
		return err
	}

	result, err := r.deps.Review.Run(ctx, phaseID, diff)
	if err != nil {
		return err
	}

	if result.Outcome == review.OutcomeMaxRetries {
		failure := fmt.Errorf("%w: %d pending comments", ixerrors.ErrReviewRetriesExceeded, len(result.PendingComments))
		return r.failPhase(ctx, phaseID, constants.FailureKindReview, "review retries exceeded", failure)
	}

	if r.cfg.MarkReadyOnApproval && r.cfg.PRDraft {
		if err := r.deps.Integrator.MarkReady(ctx, r.cfg.Cwd, prURL); err != nil {
			return err
		}
	}

	if err := r.setStatus(phaseID, constants.PhaseReadyForReview, "", ""); err != nil {
		return err
	}
	r.publishTerminal(phaseID, "success", "ci green and review approved")
	return nil
}

// recover routes an error through the recovery loop, recording attempts in
// the state store.
func (r *Runner) recover(ctx context.Context, cause error, phaseID, taskID string) error {
	exception := recovery.Classify(cause, phaseID, taskID)
	r.publish(events.Event{
		Family: events.FamilyTesterRecovery, Type: "recovery.detected", Level: events.LevelImportant,
		PhaseID: phaseID, TaskID: taskID, Message: exception.Category.String(),
	})
	r.dispatchHook(ctx, hook.OnRecovery, hook.Payload{PhaseID: phaseID, TaskID: taskID, Category: exception.Category})

	assignee := r.cfg.DefaultAssignee
	return r.deps.Recovery.AttemptExceptionRecovery(ctx, recovery.Request{
		Assignee:  assignee,
		Exception: exception,
		Actor:     r.cfg.Actor,
		Role:      r.cfg.Role,
	}, r.cfg.MaxRecoveryAttempts, func(record domain.RecoveryAttemptRecord) error {
		return r.deps.Store.RecordRecoveryAttempt(state.RecordRecoveryRequest{
			PhaseID:       phaseID,
			TaskID:        taskID,
			AttemptNumber: record.AttemptNumber,
			Exception:     record.Exception,
			Result:        record.Result,
		})
	})
}

// failPhase closes the phase as CI_FAILED and returns the causing error.
func (r *Runner) failPhase(ctx context.Context, phaseID string, kind constants.FailureKind, detail string, cause error) error {
	if err := r.setStatus(phaseID, constants.PhaseCIFailed, kind, detail); err != nil {
		r.log.Error().Err(err).Msg("failed to record phase failure")
	}
	r.dispatchHook(ctx, hook.OnCIFailed, hook.Payload{PhaseID: phaseID, FailureKind: kind, Detail: detail})
	r.publishTerminal(phaseID, "failure", detail)
	return cause
}

func (r *Runner) setStatus(phaseID string, status constants.PhaseStatus, kind constants.FailureKind, statusContext string) error {
	return r.deps.Store.SetPhaseStatus(state.SetPhaseStatusRequest{
		PhaseID:         phaseID,
		Status:          status,
		FailureKind:     kind,
		CIStatusContext: statusContext,
	})
}

func (r *Runner) loadPhase(phaseID string) (*domain.Phase, error) {
	projectState, err := r.deps.Store.GetState()
	if err != nil {
		return nil, err
	}
	phase := projectState.PhaseByID(phaseID)
	if phase == nil {
		return nil, fmt.Errorf("%w: %s", ixerrors.ErrPhaseNotFound, phaseID)
	}
	return phase, nil
}

func (r *Runner) dispatchHook(ctx context.Context, name hook.Name, payload hook.Payload) {
	if r.deps.Hooks == nil {
		return
	}
	if err := r.deps.Hooks.Dispatch(ctx, name, payload); err != nil {
		r.log.Error().Err(err).Str("hook", string(name)).Msg("lifecycle hook failed")
	}
}

func (r *Runner) publish(event events.Event) {
	if r.deps.Bus != nil {
		r.deps.Bus.Publish(event)
	}
}

func (r *Runner) publishTerminal(phaseID, outcome, summary string) {
	r.publish(events.Event{
		Family:  events.FamilyTerminalOutcome,
		Type:    "terminal.outcome",
		Level:   events.LevelCritical,
		PhaseID: phaseID,
		Message: fmt.Sprintf("outcome=%s summary=%s", outcome, summary),
	})
}
