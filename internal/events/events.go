// Package events is the in-process runtime event bus.
//
// The engine publishes typed events; external transports subscribe at a
// level and receive a fan-out copy. Publishing never blocks: a subscriber
// that cannot keep up loses events rather than stalling the engine.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
)

// Family groups related event types.
type Family string

// Event families.
const (
	FamilyTaskLifecycle   Family = "task-lifecycle"
	FamilyTesterRecovery  Family = "tester-recovery"
	FamilyCIPRLifecycle   Family = "ci-pr-lifecycle"
	FamilyTerminalOutcome Family = "terminal-outcome"
)

// Level orders events by severity. A subscriber at a level receives that
// level and above.
type Level int

// Event levels.
const (
	LevelAll Level = iota
	LevelImportant
	LevelCritical
)

// String returns the level as a string.
func (l Level) String() string {
	switch l {
	case LevelAll:
		return "all"
	case LevelImportant:
		return "important"
	case LevelCritical:
		return "critical"
	}
	return "unknown"
}

// Event is one runtime notification.
type Event struct {
	ID         string    `json:"id"`
	Family     Family    `json:"family"`
	Type       string    `json:"type"`
	Level      Level     `json:"level"`
	PhaseID    string    `json:"phaseId,omitempty"`
	TaskID     string    `json:"taskId,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// dedupKey ignores ID and timestamp so that repeats inside the suppression
// window collapse.
func (e Event) dedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", e.Family, e.Type, e.PhaseID, e.TaskID, e.Message)
}

type subscriber struct {
	ch    chan Event
	level Level
}

// Bus is a non-blocking fan-out event publisher.
type Bus struct {
	mu       sync.Mutex
	subs     map[int]*subscriber
	nextID   int
	lastSeen map[string]time.Time
	window   time.Duration
	buffer   int
	closed   bool
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithDedupWindow sets the duplicate suppression window.
func WithDedupWindow(window time.Duration) Option {
	return func(b *Bus) { b.window = window }
}

// WithBufferSize sets each subscriber's channel buffer.
func WithBufferSize(n int) Option {
	return func(b *Bus) { b.buffer = n }
}

// NewBus creates an event bus.
func NewBus(logger zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[int]*subscriber),
		lastSeen: make(map[string]time.Time),
		window:   constants.EventDedupWindow,
		buffer:   constants.EventBusBufferSize,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a consumer at the given level. The returned cancel
// function closes the channel and drops the subscription.
func (b *Bus) Subscribe(level Level) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, b.buffer), level: level}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish fans the event out to every subscriber whose level admits it.
// Repeats of the same event inside the dedup window are suppressed. A full
// subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	now := b.now()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	key := event.dedupKey()
	if last, seen := b.lastSeen[key]; seen && now.Sub(last) < b.window {
		return
	}
	b.lastSeen[key] = now
	b.prune(now)

	for _, sub := range b.subs {
		if event.Level < sub.level {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn().Str("type", event.Type).Msg("event dropped, subscriber buffer full")
		}
	}
}

// Close drops all subscriptions and closes their channels. Publishing after
// Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// prune drops dedup entries older than the window so the map stays bounded.
func (b *Bus) prune(now time.Time) {
	for key, seen := range b.lastSeen {
		if now.Sub(seen) >= b.window {
			delete(b.lastSeen, key)
		}
	}
}
