// Package lock enforces one active phase runner per project.
//
// The lock is a JSON file created with exclusive-create semantics. A stale
// file left behind by a dead process is detected with an OS liveness probe
// and removed, then acquisition retries exactly once.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// HeldError reports that another live process holds the lock.
type HeldError struct {
	Record domain.LockRecord
}

// Error implements the error interface.
func (e *HeldError) Error() string {
	return fmt.Sprintf("already running for project %q: pid=%d owner=%s acquiredAt=%s",
		e.Record.ProjectName, e.Record.PID, e.Record.Owner, e.Record.AcquiredAt.Format(time.RFC3339))
}

// Unwrap lets callers match the sentinel with errors.Is().
func (e *HeldError) Unwrap() error {
	return ixerrors.ErrLockHeld
}

// ExecutionLock is the single-owner project lock.
type ExecutionLock struct {
	path   string
	record domain.LockRecord
	// alive probes whether a PID belongs to a live process. Overridable in tests.
	alive  func(pid int) bool
	logger zerolog.Logger
}

// Option configures an ExecutionLock.
type Option func(*ExecutionLock)

// WithLivenessProbe overrides the PID liveness check.
func WithLivenessProbe(probe func(pid int) bool) Option {
	return func(l *ExecutionLock) { l.alive = probe }
}

// WithPID overrides the recorded PID. Tests use this to simulate a second
// process.
func WithPID(pid int) Option {
	return func(l *ExecutionLock) { l.record.PID = pid }
}

// New creates a lock for the project rooted at projectRoot.
func New(projectRoot, projectName string, owner domain.LockOwner, logger zerolog.Logger, opts ...Option) *ExecutionLock {
	l := &ExecutionLock{
		path: filepath.Join(projectRoot, constants.ProjectDirName, constants.LockFileName),
		record: domain.LockRecord{
			PID:         os.Getpid(),
			Owner:       owner,
			ProjectName: projectName,
		},
		alive:  pidAlive,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the lock file location.
func (l *ExecutionLock) Path() string {
	return l.path
}

// Acquire takes the lock. When the file already exists it is inspected: a
// live holder fails the acquisition, a dead one is removed and acquisition
// retries once.
func (l *ExecutionLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("lock directory: %w", err)
	}

	l.record.AcquiredAt = time.Now().UTC()

	if err := l.tryCreate(); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create lock file: %w", err)
	}

	holder, err := l.readRecord()
	if err != nil {
		// Unreadable lock file: treat as stale only if nobody can be probed.
		l.logger.Warn().Err(err).Str("path", l.path).Msg("unreadable lock file, removing")
	} else if l.alive(holder.PID) {
		return &HeldError{Record: *holder}
	} else {
		l.logger.Info().Int("stale_pid", holder.PID).Msg("removing stale execution lock")
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	if err := l.tryCreate(); err != nil {
		if errors.Is(err, os.ErrExist) {
			if holder, readErr := l.readRecord(); readErr == nil {
				return &HeldError{Record: *holder}
			}
			return fmt.Errorf("%w: lock recreated by another process", ixerrors.ErrLockHeld)
		}
		return fmt.Errorf("create lock file: %w", err)
	}
	return nil
}

// Release removes the lock only if the on-disk record still matches this
// process's pid, owner, and project name. A newer holder's lock is left
// untouched.
func (l *ExecutionLock) Release() error {
	holder, err := l.readRecord()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read lock for release: %w", err)
	}

	if holder.PID != l.record.PID || holder.Owner != l.record.Owner || holder.ProjectName != l.record.ProjectName {
		l.logger.Warn().
			Int("holder_pid", holder.PID).
			Str("holder_owner", string(holder.Owner)).
			Msg("lock held by a different process, leaving in place")
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func (l *ExecutionLock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(l.record)
}

func (l *ExecutionLock) readRecord() (*domain.LockRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var record domain.LockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse lock record: %w", err)
	}
	return &record, nil
}
