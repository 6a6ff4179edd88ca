// Package adapter drives external AI coding CLIs in non-interactive batch mode.
//
// Each supported CLI has one adapter record holding its default command, the
// base args that force batch mode, and the args that would make it
// interactive. The non-interactive invariants are checked at construction AND
// re-validated before every run, so mutating an adapter's args after
// construction cannot smuggle an interactive flag past the policy.
package adapter

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/ctxutil"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// Spec is the static contract for one external CLI.
type Spec struct {
	// ID is the adapter identifier.
	ID domain.AdapterID
	// DefaultCommand is the executable name.
	DefaultCommand string
	// RequiredBaseArgs force non-interactive batch mode. Every one must be
	// present in the adapter's args on every run.
	RequiredBaseArgs []string
	// ForbiddenArgs would put the CLI into an interactive session. None may
	// ever appear.
	ForbiddenArgs []string
	// BypassFlag skips the CLI's own approval prompts. Off unless explicitly
	// opted in; when enabled it must appear exactly once.
	BypassFlag string
}

// InteractiveModeError reports a violation of the non-interactive policy.
type InteractiveModeError struct {
	AdapterID domain.AdapterID
	Problem   string
}

// Error implements the error interface.
func (e *InteractiveModeError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.AdapterID, e.Problem)
}

// Unwrap lets callers match the sentinel with errors.Is().
func (e *InteractiveModeError) Unwrap() error {
	return ixerrors.ErrInteractiveMode
}

// Adapter is a configured instance of one external CLI.
type Adapter struct {
	spec          Spec
	command       string
	baseArgs      []string
	bypassEnabled bool
	runner        procrunner.Runner
	timeout       time.Duration
	logger        zerolog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCommand overrides the executable name, e.g. for a pinned binary path.
func WithCommand(command string) Option {
	return func(a *Adapter) {
		a.command = command
	}
}

// WithExtraArgs appends additional base args, e.g. a model selection flag.
func WithExtraArgs(args ...string) Option {
	return func(a *Adapter) {
		a.baseArgs = append(a.baseArgs, args...)
	}
}

// WithBypassApprovals opts in to the adapter's approval-bypass flag.
func WithBypassApprovals() Option {
	return func(a *Adapter) {
		a.bypassEnabled = true
	}
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = timeout
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an adapter from its spec, validating the non-interactive
// invariants once at construction.
func New(spec Spec, runner procrunner.Runner, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		spec:     spec,
		command:  spec.DefaultCommand,
		baseArgs: slices.Clone(spec.RequiredBaseArgs),
		runner:   runner,
		timeout:  constants.DefaultAdapterTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bypassEnabled {
		a.baseArgs = append(a.baseArgs, spec.BypassFlag)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// ID returns the adapter's identifier.
func (a *Adapter) ID() domain.AdapterID {
	return a.spec.ID
}

// BaseArgs exposes the current base args. The returned slice aliases the
// adapter's internal state so that tamper tests can exercise the per-run
// re-validation.
func (a *Adapter) BaseArgs() []string {
	return a.baseArgs
}

// validate enforces the non-interactive invariants against the current args.
func (a *Adapter) validate() error {
	for _, required := range a.spec.RequiredBaseArgs {
		if !slices.Contains(a.baseArgs, required) {
			return &InteractiveModeError{
				AdapterID: a.spec.ID,
				Problem:   fmt.Sprintf("required batch-mode arg %q missing", required),
			}
		}
	}
	for _, forbidden := range a.spec.ForbiddenArgs {
		if slices.Contains(a.baseArgs, forbidden) {
			return &InteractiveModeError{
				AdapterID: a.spec.ID,
				Problem:   fmt.Sprintf("forbidden interactive arg %q present", forbidden),
			}
		}
	}
	if a.spec.BypassFlag != "" {
		count := 0
		for _, arg := range a.baseArgs {
			if arg == a.spec.BypassFlag {
				count++
			}
		}
		switch {
		case a.bypassEnabled && count != 1:
			return &InteractiveModeError{
				AdapterID: a.spec.ID,
				Problem:   fmt.Sprintf("bypass flag %q must appear exactly once, found %d", a.spec.BypassFlag, count),
			}
		case !a.bypassEnabled && count != 0:
			return &InteractiveModeError{
				AdapterID: a.spec.ID,
				Problem:   fmt.Sprintf("bypass flag %q present without opt-in", a.spec.BypassFlag),
			}
		}
	}
	return nil
}

// RunRequest describes one adapter invocation.
type RunRequest struct {
	// Prompt is the work instruction.
	Prompt string
	// Resume asks the CLI to continue its previous session.
	Resume bool
	// Dir is the working directory.
	Dir string
	// Timeout overrides the adapter default when positive.
	Timeout time.Duration
}

// Run re-validates the non-interactive invariants, builds the execution plan,
// and executes the CLI. Validation failures surface before any subprocess is
// spawned.
func (a *Adapter) Run(ctx context.Context, req RunRequest) (*procrunner.Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	// Construction-time validation can be undone by mutating BaseArgs, so
	// the invariants are checked per run, not per lifetime.
	if err := a.validate(); err != nil {
		return nil, err
	}

	plan := BuildExecutionPlan(a.spec.ID, a.baseArgs, req.Prompt, req.Resume)

	timeout := a.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	a.logger.Debug().
		Str("adapter", a.spec.ID.String()).
		Bool("resume", req.Resume).
		Int("arg_count", len(plan.Args)).
		Msg("invoking adapter")

	result, err := a.runner.Run(ctx, procrunner.Request{
		Command: a.command,
		Args:    plan.Args,
		Dir:     req.Dir,
		Timeout: timeout,
		Stdin:   plan.Stdin,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", ixerrors.ErrAdapterInvocation, a.spec.ID, err)
	}
	return result, nil
}
