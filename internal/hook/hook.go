// Package hook dispatches lifecycle events to registered in-process handlers.
//
// Handlers run sequentially in registration order. The first failure,
// including a panic or a timeout, aborts the remaining handlers and surfaces
// as a structured ExecutionError.
package hook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// Name identifies a lifecycle hook event.
type Name string

// Lifecycle hook names.
const (
	BeforeTaskStart Name = "before_task_start"
	AfterTaskDone   Name = "after_task_done"
	OnRecovery      Name = "on_recovery"
	OnCIFailed      Name = "on_ci_failed"
)

// Valid reports whether the name is a known hook.
func (n Name) Valid() bool {
	switch n {
	case BeforeTaskStart, AfterTaskDone, OnRecovery, OnCIFailed:
		return true
	}
	return false
}

// Payload carries the event context to handlers. Which fields are required
// depends on the hook name; Validate enforces the per-hook schema.
type Payload struct {
	PhaseID     string                   `json:"phaseId"`
	TaskID      string                   `json:"taskId,omitempty"`
	TaskTitle   string                   `json:"taskTitle,omitempty"`
	Category    domain.ExceptionCategory `json:"category,omitempty"`
	FailureKind constants.FailureKind    `json:"failureKind,omitempty"`
	Detail      string                   `json:"detail,omitempty"`
}

// Validate checks the payload against the hook's schema.
func (p Payload) Validate(name Name) error {
	if p.PhaseID == "" {
		return fmt.Errorf("%w: %s requires phaseId", ixerrors.ErrHookPayload, name)
	}
	switch name {
	case BeforeTaskStart, AfterTaskDone:
		if p.TaskID == "" {
			return fmt.Errorf("%w: %s requires taskId", ixerrors.ErrHookPayload, name)
		}
	case OnRecovery:
		if p.Category == "" {
			return fmt.Errorf("%w: %s requires an exception category", ixerrors.ErrHookPayload, name)
		}
	case OnCIFailed:
		if p.FailureKind == "" {
			return fmt.Errorf("%w: %s requires a failure kind", ixerrors.ErrHookPayload, name)
		}
	}
	return nil
}

// Handler is one lifecycle hook callback.
type Handler func(ctx context.Context, payload Payload) error

// ExecutionError reports a handler failure with its timing context.
type ExecutionError struct {
	HookName       Name
	RegistrationID string
	TimeoutMs      int64
	DurationMs     int64
	Cause          error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("hook %s handler %q failed after %dms (timeout %dms): %v",
		e.HookName, e.RegistrationID, e.DurationMs, e.TimeoutMs, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

type registration struct {
	id      string
	handler Handler
}

// Registry holds lifecycle hook handlers in deterministic order.
type Registry struct {
	mu       sync.Mutex
	handlers map[Name][]registration
	timeout  time.Duration
	logger   zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout sets the per-handler timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) { r.timeout = timeout }
}

// NewRegistry creates an empty hook registry.
func NewRegistry(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[Name][]registration),
		timeout:  constants.DefaultHookTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler under a unique ID. Duplicate IDs for the same hook
// fail fast.
func (r *Registry) Register(name Name, id string, handler Handler) error {
	if !name.Valid() {
		return fmt.Errorf("%w: unknown hook %q", ixerrors.ErrHookPayload, name)
	}
	if id == "" {
		return fmt.Errorf("%w: registration id", ixerrors.ErrEmptyValue)
	}
	if handler == nil {
		return fmt.Errorf("%w: handler", ixerrors.ErrEmptyValue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.handlers[name] {
		if reg.id == id {
			return fmt.Errorf("%w: %s/%s", ixerrors.ErrHookDuplicateID, name, id)
		}
	}
	r.handlers[name] = append(r.handlers[name], registration{id: id, handler: handler})
	return nil
}

// Dispatch validates the payload and runs every handler for the hook in
// registration order. The first failure aborts the rest.
func (r *Registry) Dispatch(ctx context.Context, name Name, payload Payload) error {
	if err := payload.Validate(name); err != nil {
		return err
	}

	r.mu.Lock()
	regs := make([]registration, len(r.handlers[name]))
	copy(regs, r.handlers[name])
	timeout := r.timeout
	r.mu.Unlock()

	for _, reg := range regs {
		start := time.Now()
		err := r.runOne(ctx, reg, payload, timeout)
		if err != nil {
			return &ExecutionError{
				HookName:       name,
				RegistrationID: reg.id,
				TimeoutMs:      timeout.Milliseconds(),
				DurationMs:     time.Since(start).Milliseconds(),
				Cause:          err,
			}
		}
		r.logger.Debug().
			Str("hook", string(name)).
			Str("id", reg.id).
			Dur("duration", time.Since(start)).
			Msg("hook handler completed")
	}
	return nil
}

// runOne executes a single handler under the timeout, normalizing panics to
// errors. A timed-out handler keeps running in its goroutine; only the await
// is abandoned.
func (r *Registry) runOne(ctx context.Context, reg registration, payload Payload, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("handler panicked: %v", rec)
			}
		}()
		done <- reg.handler(ctx, payload)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
