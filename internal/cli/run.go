package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ixado/ixado/internal/adapter"
	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/ci"
	"github.com/ixado/ixado/internal/config"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/events"
	"github.com/ixado/ixado/internal/lock"
	"github.com/ixado/ixado/internal/phase"
	"github.com/ixado/ixado/internal/procrunner"
	"github.com/ixado/ixado/internal/recovery"
	"github.com/ixado/ixado/internal/review"
	"github.com/ixado/ixado/internal/state"
	"github.com/ixado/ixado/internal/tester"
)

// addRunCommand registers `ixado run`, which executes the active phase.
func addRunCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the active phase of the project",
		Long: `Run drives the active phase end to end: branch entry, scheduled task
execution through the configured AI CLI, local tests after every task, and,
when CI is enabled, PR creation, CI polling, and the automated review loop.

Only one run may be active per project; a second invocation fails while the
first one is alive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd.Context(), flags)
		},
	}
	root.AddCommand(cmd)
}

func runPhase(parent context.Context, flags *GlobalFlags) error {
	logger := GetLogger()
	cfg := GetConfig()

	role, err := parseRole(flags.Role)
	if err != nil {
		return err
	}
	actor := currentActor()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	execLock := lock.New(flags.ProjectRoot, cfg.Project.Name, domain.LockOwnerCLIPhaseRun, logger)
	if err := execLock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if releaseErr := execLock.Release(); releaseErr != nil {
			logger.Warn().Err(releaseErr).Msg("lock release failed")
		}
	}()

	engine, err := buildEngine(flags.ProjectRoot, cfg, actor, role, logger)
	if err != nil {
		return err
	}

	sub, unsubscribe := engine.bus.Subscribe(events.LevelAll)
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		drainEvents(sub, logger)
		return nil
	})
	g.Go(func() error {
		defer engine.bus.Close()
		return engine.runner.Run(ctx)
	})

	err = g.Wait()
	switch {
	case err == nil:
		logger.Info().Msg("phase finished")
		return nil
	case errors.Is(err, ixerrors.ErrStopRequested):
		logger.Info().Msg("phase stopped on request")
		return nil
	default:
		return err
	}
}

// drainEvents logs bus events until the bus closes.
func drainEvents(sub <-chan events.Event, logger zerolog.Logger) {
	for event := range sub {
		evt := logger.Info()
		if event.Level >= events.LevelCritical {
			evt = logger.Warn()
		}
		evt.Str("family", string(event.Family)).
			Str("type", event.Type).
			Str("phase", event.PhaseID).
			Str("task", event.TaskID).
			Msg(event.Message)
	}
}

// engine bundles the wired phase runner with its event bus.
type engine struct {
	runner *phase.Runner
	bus    *events.Bus
}

// buildEngine is the composition root: it wires the process runner, adapters,
// state store, authorization, recovery, tester, CI, and review into a phase
// runner according to the loaded configuration.
func buildEngine(projectRoot string, cfg *config.Config, actor string, role domain.Role, logger zerolog.Logger) (*engine, error) {
	runner := procrunner.NewExecRunner()

	registry, err := adapter.DefaultRegistry(runner, logger, adapter.WithTimeout(cfg.Adapter.Timeout))
	if err != nil {
		return nil, err
	}

	store := state.NewFileStore(projectRoot, newWorkExecutor(registry, projectRoot, cfg), logger)

	auditor := authz.NewFileAuditor(projectRoot, logger)
	policyPath := filepath.Join(projectRoot, constants.ProjectDirName, constants.PolicyFileName)
	authorizer := authz.NewOrchestrator(nil, func() (*domain.AuthPolicy, error) {
		return authz.LoadPolicy(policyPath)
	}, auditor, logger)

	defaultAssignee := domain.AdapterID(cfg.Adapter.Default)

	recoveryLoop := recovery.NewLoop(authorizer, auditor, store.RunInternalWork,
		recovery.NewPostconditionVerifier(runner, projectRoot), logger)

	integrator := ci.NewIntegrator(runner, authorizer, ci.IntegratorConfig{
		Draft:            cfg.CI.Draft,
		Labels:           cfg.CI.Labels,
		Assignees:        cfg.CI.Assignees,
		TemplateMappings: templateMappings(cfg.CI.TemplateMappings),
		DefaultTemplate:  cfg.CI.DefaultTemplate,
	}, actor, role, logger)

	poller := ci.NewPoller(runner, logger,
		ci.WithInterval(cfg.CI.PollInterval),
		ci.WithPollTimeout(cfg.CI.PollTimeout),
		ci.WithConfirmations(cfg.CI.TerminalConfirmations),
	)

	reviewLoop := review.NewLoop(store.RunInternalWork, authorizer, defaultAssignee,
		cfg.Review.MaxRetries, actor, role, logger)

	bus := events.NewBus(logger)
	control := phase.NewLoopControl()

	var gate phase.AdvanceGate
	if cfg.Advance.Mode == config.AdvanceModeManual {
		gate = &phase.ManualGate{Control: control}
	} else {
		gate = &phase.AutoGate{Countdown: cfg.Advance.Countdown, Control: control}
	}

	phaseRunner := phase.NewRunner(phase.Config{
		Cwd:                 projectRoot,
		Actor:               actor,
		Role:                role,
		DefaultAssignee:     defaultAssignee,
		CIEnabled:           cfg.CI.Enabled,
		CIBaseBranch:        cfg.Git.BaseBranch,
		PRDraft:             cfg.CI.Draft,
		MarkReadyOnApproval: cfg.CI.MarkReadyOnApproval,
		MaxRecoveryAttempts: cfg.Recovery.MaxAttempts,
		MaxFixTaskFanOut:    cfg.CI.MaxFixTaskFanOut,
		CIFixMaxDepth:       cfg.CI.FixMaxDepth,
		Tester:              tester.Config{Command: cfg.Tester.Command, Args: cfg.Tester.Args},
	}, phase.Deps{
		Store:      store,
		Recovery:   recoveryLoop,
		Tester:     tester.NewWorkflow(runner, logger),
		Integrator: integrator,
		Poller:     poller,
		Review:     reviewLoop,
		Brancher:   phase.NewBrancher(runner, projectRoot, logger),
		Bus:        bus,
		Gate:       gate,
		Control:    control,
		Authorizer: authorizer,
		Logger:     logger,
	})

	return &engine{runner: phaseRunner, bus: bus}, nil
}

// templateMappings converts the config's prefix-to-path map into the
// integrator's mapping list, sorted by prefix for stable wiring.
func templateMappings(m map[string]string) []ci.TemplateMapping {
	if len(m) == 0 {
		return nil
	}
	prefixes := make([]string, 0, len(m))
	for prefix := range m {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	mappings := make([]ci.TemplateMapping, 0, len(prefixes))
	for _, prefix := range prefixes {
		mappings = append(mappings, ci.TemplateMapping{BranchPrefix: prefix, TemplatePath: m[prefix]})
	}
	return mappings
}

// newWorkExecutor routes state-store work requests to the adapter registry.
func newWorkExecutor(registry *adapter.Registry, cwd string, cfg *config.Config) state.WorkExecutor {
	return func(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error) {
		a, err := registry.Get(req.Assignee)
		if err != nil {
			return nil, err
		}
		result, err := a.Run(ctx, adapter.RunRequest{
			Prompt:  req.Prompt,
			Resume:  req.Resume,
			Dir:     cwd,
			Timeout: cfg.Adapter.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return &domain.WorkResult{Stdout: result.Stdout, Stderr: result.Stderr}, nil
	}
}

// currentActor identifies the caller for audit entries.
func currentActor() string {
	if user := os.Getenv("USER"); user != "" {
		return fmt.Sprintf("cli:%s", user)
	}
	return "cli"
}
