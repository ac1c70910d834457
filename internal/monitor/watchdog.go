package monitor

import (
	"context"
	"fmt"
	"time"

	"brios/internal/model"
)

const (
	livenessInterval = 60 * time.Second
	tickErrorBackoff = 5 * time.Second
)

// watchdog is the supervisory loop: it runs for the whole session,
// independent of whether advertisements arrive, and repairs externally
// locked, stalled or wedged states. It never exits before ctx does.
func (m *Monitor) watchdog(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Monitor.WatchdogInterval)
	defer ticker.Stop()

	lastLiveness := m.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := m.watchdogTick(ctx, &lastLiveness); err != nil {
			m.logger.Warn("watchdog tick failed", "err", err)
			if !m.sleep(ctx, tickErrorBackoff) {
				return
			}
		}
	}
}

func (m *Monitor) watchdogTick(ctx context.Context, lastLiveness *time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	now := m.now()

	if now.Sub(*lastLiveness) > livenessInterval {
		*lastLiveness = now
		m.logger.Info("watchdog alive",
			"last_packet_ago", now.Sub(m.lastPacketTime()).Round(time.Second),
			"callbacks", m.callbacks.Load(),
			"matches", m.matches.Load(),
			"errors", m.errCount.Load(),
		)
	}

	locked, lockErr := m.sys.IsLocked()
	if lockErr != nil {
		return fmt.Errorf("lock state query: %w", lockErr)
	}
	if locked && !m.handlingLock.Load() {
		m.logger.Info("external screen lock detected")
		m.spawnLockHandler(ctx, triggerExternalLock)
	}

	if now.Sub(m.lastPacketTime()) > m.cfg.Monitor.StaleScanTimeout && !m.handlingLock.Load() {
		m.logger.Warn("scan stalled, forcing reconnect",
			"stale_for", now.Sub(m.lastPacketTime()).Round(time.Second),
			"timeout", m.cfg.Monitor.StaleScanTimeout,
		)
		m.spawnLockHandler(ctx, triggerStalledScan)
	}

	// A wedged handler only gets its guard cleared here; remediation is
	// left to the next tick's lock-state or stale-scan check so two
	// procedures never overlap.
	if m.handlingLock.Load() {
		if since := m.handlingSince.Load(); since > 0 && now.Sub(time.Unix(0, since)) > m.cfg.Monitor.StuckHandlerTimeout {
			m.logger.Error("lock handler stuck, forcing reset",
				"stuck_for", now.Sub(time.Unix(0, since)).Round(time.Second),
			)
			m.record(model.Event{
				Type:    model.EventWatchdogReset,
				Message: "stuck lock handler reset",
			})
			m.handlingLock.Store(false)
			m.handlingSince.Store(0)
		}
	}
	return nil
}
