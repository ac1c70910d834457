package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brios/internal/model"
	"brios/internal/scan"
)

// flakyFactory produces scanners whose Start fails until failures
// attempts have been burned, counting every attempt.
func flakyFactory(failures int, attempts *atomic.Int32) scan.Factory {
	return func(cb scan.Callback) scan.Scanner {
		return &fakeScanner{
			start: func(ctx context.Context) error {
				n := attempts.Add(1)
				if int(n) <= failures {
					return errors.New("adapter busy")
				}
				return nil
			},
		}
	}
}

func TestReconnectRetriesThenRecovers(t *testing.T) {
	var attempts atomic.Int32
	sys := &fakeSystem{}
	m, _ := newTestMonitor(testConfig(), sys, flakyFactory(2, &attempts))

	err := m.handleLock(context.Background(), triggerStalledScan)
	require.NoError(t, err)

	assert.Equal(t, int32(3), attempts.Load(), "two failures then one success")
	st := m.Status()
	assert.Equal(t, model.ReconnectActive, st.Reconnect)
	assert.False(t, st.ResumeTime.IsZero())
}

func TestReconnectExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	sys := &fakeSystem{}
	m, _ := newTestMonitor(testConfig(), sys, flakyFactory(100, &attempts))

	err := m.handleLock(context.Background(), triggerStalledScan)
	require.Error(t, err)

	assert.Equal(t, int32(5), attempts.Load(), "exactly max attempts")
	assert.Equal(t, model.ReconnectFailed, m.Status().Reconnect)
}

func TestReconnectBackoffGrowsLinearly(t *testing.T) {
	var attempts atomic.Int32
	var slept []time.Duration
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, flakyFactory(100, &attempts))
	m.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = append(slept, d)
		clk.Advance(d)
		return true
	}

	_ = m.handleLock(context.Background(), triggerStalledScan)

	// Four inter-attempt delays for five attempts: 2s, 4s, 6s, 8s.
	require.Len(t, slept, 4)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second}, slept)
}

func TestStalledScanSkipsUnlockWait(t *testing.T) {
	sys := &fakeSystem{locked: true} // would wait forever if polled
	m, _ := newTestMonitor(testConfig(), sys, nil)

	err := m.handleLock(context.Background(), triggerStalledScan)
	require.NoError(t, err)

	_, isLockedCalls := sys.stats()
	assert.Zero(t, isLockedCalls, "stalled-scan path must not poll lock state")
}

func TestExternalLockWaitsForUnlock(t *testing.T) {
	sys := &fakeSystem{locked: true, unlockAfter: 3}
	m, _ := newTestMonitor(testConfig(), sys, nil)

	err := m.handleLock(context.Background(), triggerExternalLock)
	require.NoError(t, err)

	_, isLockedCalls := sys.stats()
	assert.Equal(t, 3, isLockedCalls)
	assert.Equal(t, model.ReconnectActive, m.Status().Reconnect)
}

func TestReconnectClearsSignalWindow(t *testing.T) {
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, nil)

	feed(m, clk, -60, -60, -60)

	err := m.handleLock(context.Background(), triggerStalledScan)
	require.NoError(t, err)

	m.mu.Lock()
	filled := m.proc.Full()
	m.mu.Unlock()
	assert.False(t, filled, "stale samples must be discarded on reconnect")
}

func TestLockLoopCooldownPausesAndClears(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.LockLoop.Threshold = 2
	sys := &fakeSystem{}
	m, clk := newTestMonitor(cfg, sys, nil)

	var slept []time.Duration
	m.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = append(slept, d)
		clk.Advance(d)
		return true
	}

	require.NoError(t, m.handleLock(context.Background(), triggerStalledScan))
	assert.Equal(t, 1, m.breaker.Len())

	// Second cycle within the window trips the breaker.
	require.NoError(t, m.handleLock(context.Background(), triggerStalledScan))
	assert.Contains(t, slept, cfg.Monitor.LockLoop.Penalty)
	assert.Zero(t, m.breaker.Len(), "history cleared after cooldown")
}

func TestHandlerGuardBlocksSecondSpawn(t *testing.T) {
	release := make(chan struct{})
	factory := func(cb scan.Callback) scan.Scanner {
		return &fakeScanner{
			start: func(ctx context.Context) error {
				<-release
				return nil
			},
		}
	}
	sys := &fakeSystem{}
	m, _ := newTestMonitor(testConfig(), sys, factory)

	require.True(t, m.spawnLockHandler(context.Background(), triggerStalledScan))
	require.Eventually(t, func() bool { return m.Status().HandlingLock }, time.Second, time.Millisecond)

	assert.False(t, m.spawnLockHandler(context.Background(), triggerStalledScan),
		"second handler must not start while one is running")

	close(release)
	require.Eventually(t, func() bool { return !m.Status().HandlingLock }, 2*time.Second, time.Millisecond)
}

func TestHandlerClearsGuardOnFailure(t *testing.T) {
	var attempts atomic.Int32
	sys := &fakeSystem{}
	m, _ := newTestMonitor(testConfig(), sys, flakyFactory(100, &attempts))

	require.True(t, m.spawnLockHandler(context.Background(), triggerStalledScan))
	require.Eventually(t, func() bool { return !m.Status().HandlingLock }, 2*time.Second, time.Millisecond)
	assert.Zero(t, m.handlingSince.Load())
}
