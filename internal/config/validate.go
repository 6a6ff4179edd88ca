package config

import (
	"time"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values and
// returns the first failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ixerrors.ErrConfigNil
	}

	switch cfg.Adapter.Default {
	case "claude", "codex", "gemini", "mock-cli":
	default:
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"adapter.default must be one of claude, codex, gemini, mock-cli, got %q", cfg.Adapter.Default)
	}
	if cfg.Adapter.Timeout <= 0 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"adapter.timeout must be positive, got %s", cfg.Adapter.Timeout)
	}

	if cfg.Git.BaseBranch == "" {
		return ixerrors.Wrap(ixerrors.ErrConfigInvalid, "git.base_branch must not be empty")
	}

	if err := validateCI(&cfg.CI); err != nil {
		return err
	}

	if cfg.Recovery.MaxAttempts < 1 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"recovery.max_attempts must be at least 1, got %d", cfg.Recovery.MaxAttempts)
	}
	if cfg.Review.MaxRetries < 0 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"review.max_retries cannot be negative, got %d", cfg.Review.MaxRetries)
	}

	switch cfg.Advance.Mode {
	case AdvanceModeAuto, AdvanceModeManual:
	default:
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"advance.mode must be %q or %q, got %q", AdvanceModeAuto, AdvanceModeManual, cfg.Advance.Mode)
	}
	if cfg.Advance.Countdown < 0 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"advance.countdown cannot be negative, got %d", cfg.Advance.Countdown)
	}

	return nil
}

func validateCI(cfg *CIConfig) error {
	if !cfg.Enabled {
		return nil
	}

	minPoll, maxPoll := time.Second, 10*time.Minute
	if cfg.PollInterval < minPoll || cfg.PollInterval > maxPoll {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"ci.poll_interval must be between %s and %s, got %s", minPoll, maxPoll, cfg.PollInterval)
	}
	if cfg.PollTimeout <= 0 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"ci.poll_timeout must be positive, got %s", cfg.PollTimeout)
	}
	if cfg.TerminalConfirmations < 1 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"ci.terminal_confirmations must be at least 1, got %d", cfg.TerminalConfirmations)
	}
	if cfg.MaxFixTaskFanOut < 1 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"ci.max_fix_task_fan_out must be at least 1, got %d", cfg.MaxFixTaskFanOut)
	}
	if cfg.FixMaxDepth < 1 {
		return ixerrors.Wrapf(ixerrors.ErrConfigInvalid,
			"ci.fix_max_depth must be at least 1, got %d", cfg.FixMaxDepth)
	}
	return nil
}
