// Package cli provides the command-line interface for ixado.
package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ixado/ixado/internal/config"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	// ProjectRoot is the directory holding .ixado/. Defaults to the
	// current directory.
	ProjectRoot string
	// Role is the caller's role for authorization decisions.
	Role    string
	Verbose bool
	Quiet   bool
}

// globalState holds the logger and config initialized by the root command's
// PersistentPreRunE for use by subcommands.
var (
	globalMu     sync.RWMutex   //nolint:gochecknoglobals // CLI-wide state
	globalLogger zerolog.Logger //nolint:gochecknoglobals // CLI-wide state
	globalConfig *config.Config //nolint:gochecknoglobals // CLI-wide state
)

// GetLogger returns the logger initialized by PersistentPreRunE. Before
// initialization it returns a logger that discards all output.
func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetConfig returns the configuration loaded by PersistentPreRunE.
func GetConfig() *config.Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

func setGlobals(logger zerolog.Logger, cfg *config.Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
	globalConfig = cfg
}

// parseRole maps the --role flag to a domain role.
func parseRole(value string) (domain.Role, error) {
	switch domain.Role(value) {
	case domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator, domain.RoleViewer:
		return domain.Role(value), nil
	}
	return domain.RoleNone, fmt.Errorf("%w: role %q must be one of owner, admin, operator, viewer",
		ixerrors.ErrConfigInvalid, value)
}

// newRootCmd creates the root command for the ixado CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ixado",
		Short:   "ixado - autonomous development-phase execution engine",
		Long:    "ixado drives external AI coding CLIs through the development phase of a project:\nbranching, task execution, local testing, PR creation, CI polling, and review.",
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ProjectRoot)
			if err != nil {
				return err
			}
			logger := InitLogger(flags.ProjectRoot, cfg.Logging, flags.Verbose, flags.Quiet)
			setGlobals(logger, cfg)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.ProjectRoot, "project", "C", ".", "project root directory")
	cmd.PersistentFlags().StringVar(&flags.Role, "role", string(domain.RoleOwner), "caller role (owner, admin, operator, viewer)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "warnings and errors only")

	addInitCommand(cmd, flags)
	addRunCommand(cmd, flags)
	addStatusCommand(cmd, flags)

	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	defer CloseLogFile()
	return cmd.ExecuteContext(ctx)
}
