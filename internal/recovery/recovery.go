package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// WorkRunner executes one adapter session on behalf of the recovery loop.
// The state store's RunInternalWork satisfies this.
type WorkRunner func(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error)

// Verifier re-checks a category postcondition after a claimed fix.
type Verifier interface {
	Verify(ctx context.Context, category domain.ExceptionCategory) error
}

// AttemptRecorder persists one recovery attempt record.
type AttemptRecorder func(record domain.RecoveryAttemptRecord) error

// Request describes one exception to recover from.
type Request struct {
	Assignee  domain.AdapterID
	Exception domain.ExceptionMetadata
	Actor     string
	Role      domain.Role
}

// Loop runs exception recovery attempts.
type Loop struct {
	authorizer *authz.Orchestrator
	auditor    authz.Auditor
	runWork    WorkRunner
	verifier   Verifier
	logger     zerolog.Logger
	now        func() time.Time
}

// NewLoop wires a recovery loop. A nil auditor discards audit entries.
func NewLoop(authorizer *authz.Orchestrator, auditor authz.Auditor, runWork WorkRunner, verifier Verifier, logger zerolog.Logger) *Loop {
	if auditor == nil {
		auditor = authz.NopAuditor{}
	}
	return &Loop{
		authorizer: authorizer,
		auditor:    auditor,
		runWork:    runWork,
		verifier:   verifier,
		logger:     logger,
		now:        time.Now,
	}
}

// RunExceptionRecovery executes a single recovery attempt. The returned
// record is always populated when the adapter was invoked, even on failure,
// so the caller can persist partial attempts. A nil error means the fix was
// claimed AND verified.
func (l *Loop) RunExceptionRecovery(ctx context.Context, req Request, attemptNumber int) (*domain.RecoveryAttemptRecord, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	if err := l.authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:  req.Actor,
		Role:   req.Role,
		Action: constants.ActionOrchestratorExceptionRecovery,
		Target: req.Exception.PhaseID,
	}); err != nil {
		return nil, err
	}

	l.audit(req, "recovery:detected", req.Exception.Category.String())

	prompt := BuildPrompt(req.Exception, attemptNumber)

	l.audit(req, "recovery:adapter-invoked", fmt.Sprintf("attempt=%d resume=%t", attemptNumber, prompt.Resume))
	l.logger.Info().
		Str("category", req.Exception.Category.String()).
		Int("attempt", attemptNumber).
		Bool("resume", prompt.Resume).
		Msg("invoking recovery adapter")

	work, err := l.runWork(ctx, domain.WorkRequest{
		Assignee: req.Assignee,
		Prompt:   prompt.Text,
		PhaseID:  req.Exception.PhaseID,
		TaskID:   req.Exception.TaskID,
		Resume:   prompt.Resume,
	})
	if err != nil {
		return nil, fmt.Errorf("recovery adapter run: %w", err)
	}

	record := &domain.RecoveryAttemptRecord{
		ID:            uuid.NewString(),
		OccurredAt:    l.now().UTC(),
		AttemptNumber: attemptNumber,
		Exception:     req.Exception,
	}

	if prompt.ExpectJSON {
		result, parseErr := ParseResult(work.Stdout)
		if parseErr != nil {
			return record, parseErr
		}
		if actionErr := ValidateActions(result.ActionsTaken); actionErr != nil {
			return record, actionErr
		}
		record.Result = *result
	} else {
		// Nudge path: success is decided by the postcondition alone.
		record.Result = domain.RecoveryResult{
			Status:    domain.RecoveryFixed,
			Reasoning: "worktree cleanup nudge",
		}
	}

	if record.Result.Status == domain.RecoveryUnfixable {
		l.audit(req, "recovery:parsed-result", "unfixable")
		return record, fmt.Errorf("%w: %s", ixerrors.ErrRecoveryUnfixable, record.Result.Reasoning)
	}

	if err := l.verifier.Verify(ctx, req.Exception.Category); err != nil {
		l.audit(req, "recovery:parsed-result", "postcondition-failed")
		return record, err
	}

	l.audit(req, "recovery:parsed-result", "fixed")
	return record, nil
}

// AttemptExceptionRecovery retries RunExceptionRecovery up to maxAttempts.
// Unrecoverable exceptions, authorization denials, and unfixable verdicts
// stop the loop immediately; every invoked attempt is handed to record.
// Exhaustion surfaces as ErrRecoveryExhausted.
func (l *Loop) AttemptExceptionRecovery(ctx context.Context, req Request, maxAttempts int, record AttemptRecorder) error {
	if !req.Exception.Recoverable() {
		return fmt.Errorf("%w: category %s is not recoverable", ixerrors.ErrRecoveryUnfixable, req.Exception.Category)
	}
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultMaxRecoveryAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec, err := l.RunExceptionRecovery(ctx, req, attempt)
		if rec != nil && record != nil {
			if recordErr := record(*rec); recordErr != nil {
				l.logger.Warn().Err(recordErr).Msg("recovery attempt record not persisted")
			}
		}
		if err == nil {
			l.logger.Info().Int("attempt", attempt).Msg("recovery succeeded")
			return nil
		}
		if errors.Is(err, ixerrors.ErrAuthorizationDenied) ||
			errors.Is(err, ixerrors.ErrRecoveryUnfixable) ||
			ctxutil.Canceled(ctx) != nil {
			return err
		}
		l.logger.Warn().Err(err).Int("attempt", attempt).Msg("recovery attempt failed")
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts (%s): %w",
		ixerrors.ErrRecoveryExhausted, maxAttempts, req.Exception.Category, lastErr)
}

func (l *Loop) audit(req Request, event, detail string) {
	l.auditor.Record(authz.AuditEntry{
		Timestamp: l.now().UTC(),
		Actor:     req.Actor,
		Role:      req.Role.String(),
		Action:    event,
		Target:    req.Exception.PhaseID,
		Decision:  "event",
		Reason:    detail,
	})
}
