package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// TransitionKind distinguishes why a poll observation is notable.
type TransitionKind string

// Poll transition kinds.
const (
	TransitionFirstObservation     TransitionKind = "first-observation"
	TransitionRerunDetected        TransitionKind = "rerun-detected"
	TransitionTerminalConfirmation TransitionKind = "terminal-confirmation"
)

// PollTransition describes one observed CI state change.
type PollTransition struct {
	Kind          TransitionKind
	From          domain.CheckState
	To            domain.CheckState
	Confirmations int
}

// TransitionFunc receives poll transitions as they happen.
type TransitionFunc func(t PollTransition)

// Poller repeatedly reads the PR's status-check rollup until a terminal
// overall state has been confirmed enough times in a row. The repeated
// confirmation rides out the race between a rerun being requeued and our
// first read of its result.
type Poller struct {
	runner        procrunner.Runner
	interval      time.Duration
	timeout       time.Duration
	confirmations int
	onTransition  TransitionFunc
	logger        zerolog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the delay between polls.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) { p.interval = interval }
}

// WithPollTimeout sets the overall polling deadline.
func WithPollTimeout(timeout time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = timeout }
}

// WithConfirmations sets how many consecutive identical terminal observations
// are required.
func WithConfirmations(n int) PollerOption {
	return func(p *Poller) { p.confirmations = n }
}

// WithTransitionFunc registers the transition callback.
func WithTransitionFunc(fn TransitionFunc) PollerOption {
	return func(p *Poller) { p.onTransition = fn }
}

// NewPoller creates a poller with the default cadence.
func NewPoller(runner procrunner.Runner, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		runner:        runner,
		interval:      constants.DefaultCIPollInterval,
		timeout:       constants.DefaultCIPollTimeout,
		confirmations: constants.DefaultTerminalConfirmations,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.confirmations < 1 {
		p.confirmations = 1
	}
	return p
}

// Poll blocks until the PR's overall CI state is terminal and confirmed, the
// timeout elapses, or the context is canceled.
func (p *Poller) Poll(ctx context.Context, cwd, prURL string) (*domain.CiStatusSummary, error) {
	deadline := time.Now().Add(p.timeout)

	var last domain.CheckState
	streak := 0
	first := true

	for {
		summary, err := p.fetch(ctx, cwd, prURL)
		if err != nil {
			return nil, err
		}

		state := summary.Overall
		switch {
		case first:
			p.emit(PollTransition{Kind: TransitionFirstObservation, To: state})
			first = false
			streak = 1
		case state != last:
			// A terminal state flipping back means a rerun was requeued.
			kind := TransitionRerunDetected
			if !last.Terminal() {
				kind = TransitionFirstObservation
			}
			p.emit(PollTransition{Kind: kind, From: last, To: state})
			streak = 1
		default:
			streak++
		}
		last = state

		if state.Terminal() && streak >= p.confirmations {
			p.emit(PollTransition{Kind: TransitionTerminalConfirmation, To: state, Confirmations: streak})
			p.logger.Info().Str("overall", state.String()).Int("confirmations", streak).Msg("ci state confirmed terminal")
			return summary, nil
		}

		if time.Now().After(deadline) {
			return summary, fmt.Errorf("%w after %s, last state %s", ixerrors.ErrCITimeout, p.timeout, state)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

func (p *Poller) emit(t PollTransition) {
	if p.onTransition != nil {
		p.onTransition(t)
	}
}

// statusCheckRollup mirrors the hosting CLI's JSON shape.
type statusCheckRollup struct {
	StatusCheckRollup []rollupEntry `json:"statusCheckRollup"`
}

type rollupEntry struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	DetailsURL string `json:"detailsUrl"`
}

func (p *Poller) fetch(ctx context.Context, cwd, prURL string) (*domain.CiStatusSummary, error) {
	result, err := p.runner.Run(ctx, procrunner.Request{
		Command: "gh",
		Args:    []string{"pr", "view", prURL, "--json", "statusCheckRollup"},
		Dir:     cwd,
	})
	if err != nil {
		return nil, fmt.Errorf("pr view: %w", err)
	}

	var rollup statusCheckRollup
	if err := json.Unmarshal([]byte(result.Stdout), &rollup); err != nil {
		return nil, fmt.Errorf("parse status rollup: %w", err)
	}

	summary := &domain.CiStatusSummary{Checks: make([]domain.CiCheck, 0, len(rollup.StatusCheckRollup))}
	for _, entry := range rollup.StatusCheckRollup {
		summary.Checks = append(summary.Checks, domain.CiCheck{
			Name:       entry.Name,
			State:      mapCheckState(entry.Status, entry.Conclusion),
			DetailsURL: entry.DetailsURL,
		})
	}
	summary.Overall = overallState(summary.Checks)
	return summary, nil
}

// mapCheckState normalizes the CLI's status/conclusion pair. A check without
// a conclusion is still in flight.
func mapCheckState(status, conclusion string) domain.CheckState {
	if conclusion == "" {
		return domain.CheckPending
	}
	switch strings.ToUpper(conclusion) {
	case "SUCCESS", "NEUTRAL", "SKIPPED":
		return domain.CheckSuccess
	case "FAILURE", "TIMED_OUT", "ACTION_REQUIRED":
		return domain.CheckFailure
	case "CANCELLED":
		return domain.CheckCancelled
	}
	_ = status
	return domain.CheckUnknown
}

func overallState(checks []domain.CiCheck) domain.CheckState {
	if len(checks) == 0 {
		return domain.CheckUnknown
	}
	overall := domain.CheckSuccess
	for _, c := range checks {
		switch c.State {
		case domain.CheckPending:
			return domain.CheckPending
		case domain.CheckFailure:
			overall = domain.CheckFailure
		case domain.CheckCancelled:
			if overall == domain.CheckSuccess || overall == domain.CheckUnknown {
				overall = domain.CheckCancelled
			}
		case domain.CheckUnknown:
			if overall == domain.CheckSuccess {
				overall = domain.CheckUnknown
			}
		case domain.CheckSuccess:
		}
	}
	return overall
}
