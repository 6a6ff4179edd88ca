package phase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/huh"
)

// AdvanceSignal is the outcome of waiting at the advance gate.
type AdvanceSignal int

// Advance signals.
const (
	AdvanceNext AdvanceSignal = iota
	AdvanceStop
)

// LoopControl lets external callers steer the task loop. RequestStop wins
// over any pending advance.
type LoopControl struct {
	stop atomic.Bool
	next chan struct{}
}

// NewLoopControl creates a control token.
func NewLoopControl() *LoopControl {
	return &LoopControl{next: make(chan struct{}, 1)}
}

// RequestNext releases one waiter at the advance gate.
func (c *LoopControl) RequestNext() {
	select {
	case c.next <- struct{}{}:
	default:
	}
}

// RequestStop makes the loop exit at the next checkpoint and short-circuits
// any pending gate wait.
func (c *LoopControl) RequestStop() {
	c.stop.Store(true)
	c.RequestNext()
}

// Stopped reports whether a stop was requested.
func (c *LoopControl) Stopped() bool {
	return c.stop.Load()
}

// AdvanceGate blocks between task iterations.
type AdvanceGate interface {
	Await(ctx context.Context) (AdvanceSignal, error)
}

// AutoGate advances after a countdown of one-second ticks, checking the stop
// flag between ticks. A zero countdown advances immediately without sleeping.
type AutoGate struct {
	Countdown int
	Control   *LoopControl
}

// Await implements AdvanceGate.
func (g *AutoGate) Await(ctx context.Context) (AdvanceSignal, error) {
	for remaining := g.Countdown; remaining > 0; remaining-- {
		if g.Control.Stopped() {
			return AdvanceStop, nil
		}
		select {
		case <-ctx.Done():
			return AdvanceStop, ctx.Err()
		case <-g.Control.next:
			if g.Control.Stopped() {
				return AdvanceStop, nil
			}
			return AdvanceNext, nil
		case <-time.After(time.Second):
		}
	}
	if g.Control.Stopped() {
		return AdvanceStop, nil
	}
	return AdvanceNext, nil
}

// ManualGate prompts on the local terminal before each task.
type ManualGate struct {
	Control *LoopControl
}

// Await implements AdvanceGate.
func (g *ManualGate) Await(ctx context.Context) (AdvanceSignal, error) {
	if g.Control.Stopped() {
		return AdvanceStop, nil
	}

	proceed := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Continue with the next task?").
			Affirmative("Next").
			Negative("Stop").
			Value(&proceed),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return AdvanceStop, err
	}
	if !proceed || g.Control.Stopped() {
		return AdvanceStop, nil
	}
	return AdvanceNext, nil
}
