package config

import (
	"github.com/spf13/viper"

	"github.com/ixado/ixado/internal/constants"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Adapter: AdapterConfig{
			Default: "claude",
			Timeout: constants.DefaultAdapterTimeout,
		},
		Git: GitConfig{
			BaseBranch: "main",
			Remote:     "origin",
		},
		CI: CIConfig{
			Enabled:               true,
			PollInterval:          constants.DefaultCIPollInterval,
			PollTimeout:           constants.DefaultCIPollTimeout,
			TerminalConfirmations: constants.DefaultTerminalConfirmations,
			MaxFixTaskFanOut:      constants.DefaultMaxFixTaskFanOut,
			FixMaxDepth:           constants.DefaultCIFixMaxDepth,
		},
		Recovery: RecoveryConfig{
			MaxAttempts: constants.DefaultMaxRecoveryAttempts,
		},
		Review: ReviewConfig{
			MaxRetries: constants.DefaultMaxReviewRetries,
		},
		Advance: AdvanceConfig{
			Mode:      AdvanceModeAuto,
			Countdown: constants.DefaultAdvanceCountdown,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       true,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// setDefaults mirrors DefaultConfig onto a viper instance.
// Keys must match the yaml tag names exactly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")

	v.SetDefault("adapter.default", "claude")
	v.SetDefault("adapter.timeout", constants.DefaultAdapterTimeout.String())

	v.SetDefault("git.base_branch", "main")
	v.SetDefault("git.remote", "origin")

	v.SetDefault("ci.enabled", true)
	v.SetDefault("ci.poll_interval", constants.DefaultCIPollInterval.String())
	v.SetDefault("ci.poll_timeout", constants.DefaultCIPollTimeout.String())
	v.SetDefault("ci.terminal_confirmations", constants.DefaultTerminalConfirmations)
	v.SetDefault("ci.max_fix_task_fan_out", constants.DefaultMaxFixTaskFanOut)
	v.SetDefault("ci.fix_max_depth", constants.DefaultCIFixMaxDepth)
	v.SetDefault("ci.draft", false)
	v.SetDefault("ci.mark_ready_on_approval", false)
	v.SetDefault("ci.labels", []string{})
	v.SetDefault("ci.assignees", []string{})
	v.SetDefault("ci.template_mappings", map[string]string{})
	v.SetDefault("ci.default_template", "")

	v.SetDefault("tester.command", "")
	v.SetDefault("tester.args", []string{})

	v.SetDefault("recovery.max_attempts", constants.DefaultMaxRecoveryAttempts)

	v.SetDefault("review.max_retries", constants.DefaultMaxReviewRetries)

	v.SetDefault("advance.mode", AdvanceModeAuto)
	v.SetDefault("advance.countdown", constants.DefaultAdvanceCountdown)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
}
