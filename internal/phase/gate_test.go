package phase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoGateZeroCountdownAdvancesImmediately(t *testing.T) {
	gate := &AutoGate{Countdown: 0, Control: NewLoopControl()}

	start := time.Now()
	signal, err := gate.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdvanceNext, signal)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAutoGateStopShortCircuits(t *testing.T) {
	control := NewLoopControl()
	control.RequestStop()
	gate := &AutoGate{Countdown: 30, Control: control}

	start := time.Now()
	signal, err := gate.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdvanceStop, signal)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAutoGateRequestNextSkipsCountdown(t *testing.T) {
	control := NewLoopControl()
	gate := &AutoGate{Countdown: 30, Control: control}

	control.RequestNext()
	start := time.Now()
	signal, err := gate.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdvanceNext, signal)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAutoGateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := &AutoGate{Countdown: 30, Control: NewLoopControl()}
	signal, err := gate.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, AdvanceStop, signal)
}

func TestLoopControlStopWinsOverNext(t *testing.T) {
	control := NewLoopControl()
	gate := &AutoGate{Countdown: 5, Control: control}

	control.RequestStop()
	signal, err := gate.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdvanceStop, signal)
	assert.True(t, control.Stopped())
}
