package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestValidateNil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ixerrors.ErrConfigNil)
}

func TestValidateDefaultsPass(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *Config)
		contains string
	}{
		{"unknown adapter", func(c *Config) { c.Adapter.Default = "vim" }, "adapter.default"},
		{"zero adapter timeout", func(c *Config) { c.Adapter.Timeout = 0 }, "adapter.timeout"},
		{"empty base branch", func(c *Config) { c.Git.BaseBranch = "" }, "git.base_branch"},
		{"poll interval too short", func(c *Config) { c.CI.PollInterval = 0 }, "ci.poll_interval"},
		{"zero confirmations", func(c *Config) { c.CI.TerminalConfirmations = 0 }, "ci.terminal_confirmations"},
		{"zero fan out", func(c *Config) { c.CI.MaxFixTaskFanOut = 0 }, "ci.max_fix_task_fan_out"},
		{"zero fix depth", func(c *Config) { c.CI.FixMaxDepth = 0 }, "ci.fix_max_depth"},
		{"zero recovery attempts", func(c *Config) { c.Recovery.MaxAttempts = 0 }, "recovery.max_attempts"},
		{"negative review retries", func(c *Config) { c.Review.MaxRetries = -1 }, "review.max_retries"},
		{"bad advance mode", func(c *Config) { c.Advance.Mode = "turbo" }, "advance.mode"},
		{"negative countdown", func(c *Config) { c.Advance.Countdown = -1 }, "advance.countdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			assert.ErrorIs(t, err, ixerrors.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateCIDisabledSkipsCIChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CI.Enabled = false
	cfg.CI.PollInterval = 0
	assert.NoError(t, Validate(cfg))
}

func TestValidateZeroReviewRetriesAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Review.MaxRetries = 0
	assert.NoError(t, Validate(cfg))
}
