package monitor

import (
	"context"
	"fmt"
	"time"

	"brios/internal/model"
)

// trigger identifies why a lock-handling cycle started.
type trigger int

const (
	// triggerExternalLock means the screen is locked, either by our own
	// lock command or by the user/OS. The handler waits for unlock.
	triggerExternalLock trigger = iota
	// triggerStalledScan means the backend silently stopped delivering
	// advertisements. The handler skips the unlock wait entirely.
	triggerStalledScan
)

func (t trigger) String() string {
	if t == triggerStalledScan {
		return "stalled_scan"
	}
	return "external_lock"
}

// spawnLockHandler starts the lock-handling procedure as a background
// task. The handlingLock flag is the sole guard against two concurrent
// handlers; losing the swap means one is already running.
func (m *Monitor) spawnLockHandler(ctx context.Context, t trigger) bool {
	if !m.handlingLock.CompareAndSwap(false, true) {
		return false
	}
	m.handlingSince.Store(m.now().UnixNano())

	go func() {
		defer func() {
			m.handlingLock.Store(false)
			m.handlingSince.Store(0)
		}()
		if err := m.handleLock(ctx, t); err != nil && ctx.Err() == nil {
			// Not fatal: the watchdog re-triggers remediation on its
			// next relevant tick.
			m.logger.Error("reconnect cycle failed", "trigger", t.String(), "err", err)
			m.record(model.Event{
				Type:    model.EventReconnectFail,
				Message: err.Error(),
			})
		}
	}()
	return true
}

// handleLock pauses the scan around the locked-screen period and brings
// monitoring back up: stop the subscription, wait out the lock, discard
// stale signal context, apply the loop breaker, then restart on a fresh
// scanner handle with bounded retries.
func (m *Monitor) handleLock(ctx context.Context, t trigger) error {
	m.setReconnectState(model.ReconnectStopping)

	if sc := m.currentScanner(); sc != nil {
		if err := m.stopScanner(ctx, sc); err != nil {
			m.logger.Warn("scanner stop failed, continuing", "err", err)
		}
	}
	m.logger.Info("scanner paused", "trigger", t.String())
	m.record(model.Event{
		Type:    model.EventScreenLocked,
		Message: "scanner paused: " + t.String(),
	})

	if t == triggerExternalLock {
		if err := m.waitForUnlock(ctx); err != nil {
			m.setReconnectState(model.ReconnectFailed)
			return err
		}
	}

	m.mu.Lock()
	m.proc.Reset()
	m.mu.Unlock()

	if m.breaker.RecordAndCheck(m.now()) {
		m.logger.Warn("lock loop detected, pausing",
			"threshold", m.cfg.Monitor.LockLoop.Threshold,
			"window", m.cfg.Monitor.LockLoop.Window,
			"penalty", m.cfg.Monitor.LockLoop.Penalty,
		)
		m.record(model.Event{
			Type:    model.EventLoopCooldown,
			Message: fmt.Sprintf("lock loop detected, pausing %s", m.cfg.Monitor.LockLoop.Penalty),
		})
		if !m.sleep(ctx, m.cfg.Monitor.LockLoop.Penalty) {
			return ctx.Err()
		}
		m.breaker.Clear()
	}

	m.mu.Lock()
	m.lockCycles++
	m.mu.Unlock()

	return m.restartScanner(ctx)
}

// waitForUnlock polls the session lock state until it clears. A query
// error is treated as "unlocked": staying wedged on a broken query is
// worse than resuming early.
func (m *Monitor) waitForUnlock(ctx context.Context) error {
	m.setReconnectState(model.ReconnectWaiting)
	waitStart := m.now()

	if !m.sleep(ctx, m.cfg.Monitor.LockPollInterval) {
		return ctx.Err()
	}
	for {
		locked, err := m.sys.IsLocked()
		if err != nil {
			m.logger.Warn("lock state query failed, assuming unlocked", "err", err)
			break
		}
		if !locked {
			break
		}
		if !m.sleep(ctx, m.cfg.Monitor.LockPollInterval) {
			return ctx.Err()
		}
	}

	lockedFor := m.now().Sub(waitStart).Round(time.Second)
	m.logger.Info("screen unlocked, reconnecting scanner", "locked_for", lockedFor)
	m.record(model.Event{
		Type:    model.EventScreenUnlock,
		Message: fmt.Sprintf("screen unlocked after %s", lockedFor),
	})
	return nil
}

// restartScanner replaces the subscription with a fresh handle and
// starts it with bounded retries and linear backoff. Exhausting every
// attempt is the one error this layer propagates.
func (m *Monitor) restartScanner(ctx context.Context) error {
	m.setReconnectState(model.ReconnectRestarting)

	sc := m.newScanner(m.HandleAdvertisement)
	m.setScanner(sc)

	max := m.cfg.Scanner.MaxStartRetries
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		err := m.startScanner(ctx, sc)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if attempt == max {
			break
		}
		delay := m.cfg.Scanner.RetryBaseDelay * time.Duration(attempt)
		m.logger.Warn("scanner start failed, retrying",
			"attempt", attempt,
			"max", max,
			"retry_in", delay,
			"err", err,
		)
		if !m.sleep(ctx, delay) {
			return ctx.Err()
		}
	}
	if lastErr != nil {
		m.setReconnectState(model.ReconnectFailed)
		return fmt.Errorf("scanner start after %d attempts: %w", max, lastErr)
	}

	now := m.now()
	m.mu.Lock()
	m.resumeTime = now
	m.mu.Unlock()
	m.lastPacket.Store(now.UnixNano())

	m.setReconnectState(model.ReconnectActive)
	m.logger.Info("scanner reconnected, monitoring resumed")
	m.record(model.Event{
		Type:    model.EventReconnected,
		Message: "scanner reconnected, monitoring resumed",
	})
	return nil
}

func (m *Monitor) setReconnectState(s model.ReconnectState) {
	m.mu.Lock()
	m.reconnect = s
	m.mu.Unlock()
}
