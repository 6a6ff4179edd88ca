// Package config provides layered configuration for ixado.
//
// Sources are merged with the following precedence (highest first):
//  1. Environment variables (IXADO_* prefix)
//  2. Project config (.ixado/config.yaml)
//  3. Built-in defaults
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Project identifies the project for the execution lock and audit log.
	Project ProjectConfig `yaml:"project" mapstructure:"project"`

	// Adapter selects and bounds the external AI CLI.
	Adapter AdapterConfig `yaml:"adapter" mapstructure:"adapter"`

	// Git controls branch handling.
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// CI controls PR creation and remote CI polling.
	CI CIConfig `yaml:"ci" mapstructure:"ci"`

	// Tester selects the local test command. Empty command auto-detects.
	Tester TesterConfig `yaml:"tester" mapstructure:"tester"`

	// Recovery bounds the exception-recovery loop.
	Recovery RecoveryConfig `yaml:"recovery" mapstructure:"recovery"`

	// Review bounds the reviewer/fixer validation loop.
	Review ReviewConfig `yaml:"review" mapstructure:"review"`

	// Advance controls the between-task gate.
	Advance AdvanceConfig `yaml:"advance" mapstructure:"advance"`

	// Logging controls the console and rotating file writers.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ProjectConfig identifies the project.
type ProjectConfig struct {
	// Name labels the lock record and audit entries. Defaults to the
	// project directory basename when empty.
	Name string `yaml:"name" mapstructure:"name"`
}

// AdapterConfig selects the external AI CLI.
type AdapterConfig struct {
	// Default is the adapter used for tasks without an explicit assignee
	// (claude, codex, gemini, mock-cli).
	Default string `yaml:"default" mapstructure:"default"`

	// Timeout bounds a single adapter invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GitConfig controls branch handling.
type GitConfig struct {
	// BaseBranch is the branch phase branches are created from.
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`

	// Remote is the push target for phase branches.
	Remote string `yaml:"remote" mapstructure:"remote"`
}

// CIConfig controls PR creation and remote CI polling.
type CIConfig struct {
	// Enabled turns the PR/CI/review path on. When false a phase finishes
	// as DONE after its last task.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// PollInterval is the sleep between CI status polls.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// PollTimeout bounds the whole polling loop.
	PollTimeout time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`

	// TerminalConfirmations is how many consecutive polls must agree on a
	// terminal state before it is trusted.
	TerminalConfirmations int `yaml:"terminal_confirmations" mapstructure:"terminal_confirmations"`

	// MaxFixTaskFanOut caps fix-tasks created in one mapping pass.
	MaxFixTaskFanOut int `yaml:"max_fix_task_fan_out" mapstructure:"max_fix_task_fan_out"`

	// FixMaxDepth caps how deeply fix-tasks may chain onto fix-tasks.
	FixMaxDepth int `yaml:"fix_max_depth" mapstructure:"fix_max_depth"`

	// Draft opens PRs as drafts.
	Draft bool `yaml:"draft" mapstructure:"draft"`

	// MarkReadyOnApproval flips a draft PR to ready once review approves.
	MarkReadyOnApproval bool `yaml:"mark_ready_on_approval" mapstructure:"mark_ready_on_approval"`

	// Labels and Assignees are applied to created PRs.
	Labels    []string `yaml:"labels" mapstructure:"labels"`
	Assignees []string `yaml:"assignees" mapstructure:"assignees"`

	// TemplateMappings maps branch-name prefixes to PR body template files.
	// The longest matching prefix wins; DefaultTemplate is the fallback.
	TemplateMappings map[string]string `yaml:"template_mappings" mapstructure:"template_mappings"`
	DefaultTemplate  string            `yaml:"default_template" mapstructure:"default_template"`
}

// TesterConfig selects the local test command.
type TesterConfig struct {
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

// RecoveryConfig bounds the exception-recovery loop.
type RecoveryConfig struct {
	// MaxAttempts is the per-decision-point recovery attempt cap.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ReviewConfig bounds the reviewer/fixer validation loop.
type ReviewConfig struct {
	// MaxRetries is the fixer invocation cap. Zero means a single reviewer
	// pass with no fixer.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// AdvanceConfig controls the between-task gate.
type AdvanceConfig struct {
	// Mode is "auto" (countdown) or "manual" (interactive confirm).
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Countdown is the auto-mode delay between tasks, in seconds. Zero
	// advances immediately.
	Countdown int `yaml:"countdown" mapstructure:"countdown"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// File enables the rotating file writer under .ixado/.
	File bool `yaml:"file" mapstructure:"file"`

	// MaxSizeMB and MaxBackups tune log rotation.
	MaxSizeMB  int `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// Advance gate modes.
const (
	AdvanceModeAuto   = "auto"
	AdvanceModeManual = "manual"
)
