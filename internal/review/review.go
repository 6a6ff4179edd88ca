// Package review runs the automated review/fix cycle over a phase's diff
// before the phase is handed to humans.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/jsonx"
)

// Verdict is the reviewer's decision on the current diff.
type Verdict string

// Reviewer verdicts.
const (
	VerdictApproved         Verdict = "APPROVED"
	VerdictChangesRequested Verdict = "CHANGES_REQUESTED"
)

// Review is the strict-schema JSON object the reviewer must return.
type Review struct {
	Verdict  Verdict  `json:"verdict"`
	Comments []string `json:"comments"`
}

// Outcome is the terminal state of the validation loop.
type Outcome string

// Loop outcomes.
const (
	OutcomeApproved   Outcome = "APPROVED"
	OutcomeMaxRetries Outcome = "MAX_RETRIES_EXCEEDED"
)

// Result summarizes one validation loop run.
type Result struct {
	Outcome     Outcome
	FixAttempts int
	Reviews     []Review
	// PendingComments holds the unaddressed comments when retries ran out.
	PendingComments []string
}

// WorkRunner executes one adapter session. The reviewer and fixer archetypes
// are the same adapter driven by different prompts.
type WorkRunner func(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error)

// Loop drives the review/fix cycle.
type Loop struct {
	runWork    WorkRunner
	authorizer *authz.Orchestrator
	assignee   domain.AdapterID
	maxRetries int
	actor      string
	role       domain.Role
	logger     zerolog.Logger
}

// NewLoop wires a validation loop. maxRetries bounds fixer invocations; zero
// means a single reviewer pass with no fixing.
func NewLoop(runWork WorkRunner, authorizer *authz.Orchestrator, assignee domain.AdapterID, maxRetries int, actor string, role domain.Role, logger zerolog.Logger) *Loop {
	return &Loop{
		runWork:    runWork,
		authorizer: authorizer,
		assignee:   assignee,
		maxRetries: maxRetries,
		actor:      actor,
		role:       role,
		logger:     logger,
	}
}

// Run validates the diff. An empty diff is approved without invoking the
// reviewer. A reviewer requesting changes without comments is a contract
// violation and fatal.
func (l *Loop) Run(ctx context.Context, phaseID, diff string) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	if err := l.authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:  l.actor,
		Role:   l.role,
		Action: constants.ActionOrchestratorCIValidation,
		Target: phaseID,
	}); err != nil {
		return nil, err
	}

	if strings.TrimSpace(diff) == "" {
		l.logger.Info().Msg("empty diff, skipping review")
		return &Result{Outcome: OutcomeApproved}, nil
	}

	result := &Result{}
	for {
		review, err := l.invokeReviewer(ctx, phaseID, diff)
		if err != nil {
			return nil, err
		}
		result.Reviews = append(result.Reviews, *review)

		if review.Verdict == VerdictApproved {
			result.Outcome = OutcomeApproved
			l.logger.Info().Int("fix_attempts", result.FixAttempts).Msg("review approved")
			return result, nil
		}

		if result.FixAttempts >= l.maxRetries {
			result.Outcome = OutcomeMaxRetries
			result.PendingComments = review.Comments
			l.logger.Warn().Int("fix_attempts", result.FixAttempts).Msg("review retries exhausted")
			return result, nil
		}

		if err := l.invokeFixer(ctx, phaseID, review.Comments, result.FixAttempts > 0); err != nil {
			return nil, err
		}
		result.FixAttempts++
	}
}

func (l *Loop) invokeReviewer(ctx context.Context, phaseID, diff string) (*Review, error) {
	prompt := fmt.Sprintf(`Review the following diff as a strict code reviewer.

Reply with ONLY a JSON object, no extra keys:
{"verdict": "APPROVED" | "CHANGES_REQUESTED", "comments": ["<one actionable comment per issue>"]}

An APPROVED verdict may carry an empty comments list. A CHANGES_REQUESTED verdict MUST carry at least one comment.

Diff:
%s`, diff)

	work, err := l.runWork(ctx, domain.WorkRequest{
		Assignee: l.assignee,
		Prompt:   prompt,
		PhaseID:  phaseID,
	})
	if err != nil {
		return nil, fmt.Errorf("reviewer run: %w", err)
	}

	review, err := parseReview(work.Stdout)
	if err != nil {
		return nil, err
	}
	if review.Verdict == VerdictChangesRequested && len(review.Comments) == 0 {
		return nil, fmt.Errorf("%w: changes requested without comments", ixerrors.ErrReviewContract)
	}
	return review, nil
}

func (l *Loop) invokeFixer(ctx context.Context, phaseID string, comments []string, resume bool) error {
	var b strings.Builder
	b.WriteString("A code review of your work requested the following changes. Address every comment, then commit the fixes.\n\n")
	for _, comment := range comments {
		fmt.Fprintf(&b, "- %s\n", comment)
	}

	_, err := l.runWork(ctx, domain.WorkRequest{
		Assignee: l.assignee,
		Prompt:   b.String(),
		PhaseID:  phaseID,
		Resume:   resume,
	})
	if err != nil {
		return fmt.Errorf("fixer run: %w", err)
	}
	return nil
}

func parseReview(output string) (*Review, error) {
	raw, err := jsonx.ExtractJSONObject(output)
	if err != nil {
		return nil, fmt.Errorf("%w: no JSON object in reviewer output", ixerrors.ErrReviewContract)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var review Review
	if err := decoder.Decode(&review); err != nil {
		return nil, fmt.Errorf("%w: %s", ixerrors.ErrReviewContract, err)
	}
	if review.Verdict != VerdictApproved && review.Verdict != VerdictChangesRequested {
		return nil, fmt.Errorf("%w: verdict %q", ixerrors.ErrReviewContract, review.Verdict)
	}
	return &review, nil
}
