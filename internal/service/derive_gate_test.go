package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(opts DeriveGateOptions) (*DeriveGate, *fakeClock) {
	clock := newFakeClock()
	g := NewDeriveGate(opts)
	g.now = clock.Now
	return g, clock
}

func requireGateReason(t *testing.T, err error, reason string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.Wrap(err)
	require.Equal(t, apperrors.ErrGateRejected, appErr.Type)
	require.Equal(t, reason, appErr.Reason)
	return appErr
}

func TestDeriveGateRateLimitsThirdAttempt(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())

	require.NoError(t, g.Acquire())
	clock.Advance(11 * time.Second)
	require.NoError(t, g.Acquire())
	clock.Advance(11 * time.Second)

	appErr := requireGateReason(t, g.Acquire(), GateRateLimited)
	assert.Equal(t, 38, appErr.RetryAfter)

	st := g.Snapshot()
	assert.Equal(t, 2, st.AttemptsInWindow, "rejections are not recorded")
}

func TestDeriveGateCooldown(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())

	require.NoError(t, g.Acquire())
	clock.Advance(5 * time.Second)

	appErr := requireGateReason(t, g.Acquire(), GateCooldown)
	assert.Equal(t, 5, appErr.RetryAfter)
	assert.Contains(t, appErr.Message, "retry in 5s")

	clock.Advance(5 * time.Second)
	assert.NoError(t, g.Acquire())
}

func TestDeriveGateBlockOverridesEverything(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())

	until := g.Block()
	assert.Equal(t, clock.Now().Add(30*time.Minute), until)

	for _, step := range []time.Duration{time.Second, 2 * time.Minute, 27 * time.Minute} {
		clock.Advance(step)
		requireGateReason(t, g.Acquire(), GateBlocked)
	}

	clock.Advance(58 * time.Second)
	requireGateReason(t, g.Acquire(), GateBlocked)

	clock.Advance(time.Second)
	assert.NoError(t, g.Acquire())
}

func TestDeriveGateBlockedMessageCarriesWait(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())
	g.Block()
	clock.Advance(29 * time.Minute)

	appErr := requireGateReason(t, g.Acquire(), GateBlocked)
	assert.Equal(t, 60, appErr.RetryAfter)
	assert.Contains(t, appErr.Message, "retry in 60s")
}

func TestDeriveGateWindowResets(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())

	require.NoError(t, g.Acquire())
	clock.Advance(10 * time.Second)
	require.NoError(t, g.Acquire())

	clock.Advance(51 * time.Second)
	require.NoError(t, g.Acquire())
	assert.Equal(t, 1, g.Snapshot().AttemptsInWindow)
}

func TestDeriveGateWindowBoundaryIsInclusive(t *testing.T) {
	g, clock := newTestGate(DefaultDeriveGateOptions())

	require.NoError(t, g.Acquire())
	clock.Advance(30 * time.Second)
	require.NoError(t, g.Acquire())

	clock.Advance(30 * time.Second)
	requireGateReason(t, g.Acquire(), GateRateLimited)
}

func TestDeriveGateConcurrentAcquire(t *testing.T) {
	opts := DefaultDeriveGateOptions()
	opts.Cooldown = 0
	g, _ := newTestGate(opts)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire() == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), allowed.Load())
}

func TestDeriveGateOptionsFromConfig(t *testing.T) {
	opts := DeriveGateOptionsFromConfig(config.DeriveGateConfig{MaxAttemptsPerWindow: 5, BlockMinutes: 1})
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.Equal(t, time.Minute, opts.Block)
	assert.Equal(t, 60*time.Second, opts.Window)
	assert.Equal(t, 10*time.Second, opts.Cooldown)
}
