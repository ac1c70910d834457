// Package monitor implements the proximity monitoring session: signal
// processing, the in/out-of-range alert machine, screen-lock
// orchestration and the supervisory layer (watchdog, reconnect,
// lock-loop breaker) that keeps the session alive across radio-stack
// failures.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"brios/internal/config"
	"brios/internal/events"
	"brios/internal/model"
	"brios/internal/scan"
	"brios/internal/signal"
	"brios/internal/system"
)

// Monitor owns all mutable state of one monitoring session. The
// advertisement callback only stamps counters and pushes onto a bounded
// queue; a single consumer goroutine drains it, so session state has one
// writer plus the watchdog and at most one lock handler, guarded by mu
// and the handlingLock flag.
type Monitor struct {
	cfg        *config.Config
	logger     *slog.Logger
	events     *events.Store
	sys        system.Controller
	newScanner scan.Factory

	target string
	advCh  chan model.Advertisement

	mu             sync.Mutex
	proc           *signal.Processor
	scanner        scan.Scanner
	alertTriggered bool
	resumeTime     time.Time
	reconnect      model.ReconnectState
	lockCycles     int
	targetSeen     bool

	breaker *LoopBreaker

	handlingLock  atomic.Bool
	handlingSince atomic.Int64 // unix nanos, 0 when idle
	lastPacket    atomic.Int64 // unix nanos

	callbacks atomic.Uint64
	matches   atomic.Uint64
	errCount  atomic.Uint64

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg *config.Config, logger *slog.Logger, store *events.Store, sys system.Controller, factory scan.Factory) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		cfg:        cfg,
		logger:     logger,
		events:     store,
		sys:        sys,
		newScanner: factory,
		target:     cfg.TargetAddress(),
		advCh:      make(chan model.Advertisement, cfg.Monitor.EventBuffer),
		proc:       signal.NewProcessor(cfg.Signal.SampleWindow, cfg.Signal.TxPowerAt1m, cfg.Signal.PathLossExponent),
		breaker:    NewLoopBreaker(cfg.Monitor.LockLoop.Threshold, cfg.Monitor.LockLoop.Window),
		reconnect:  model.ReconnectActive,
		now:        time.Now,
		sleep:      sleepContext,
	}
	m.lastPacket.Store(time.Now().UnixNano())
	return m
}

// Run starts the scan subscription and blocks consuming advertisements
// until ctx is cancelled. A failure to start the initial subscription is
// the one fatal error: no watchdog is running yet to recover it.
func (m *Monitor) Run(ctx context.Context) error {
	sc := m.newScanner(m.HandleAdvertisement)
	m.setScanner(sc)
	if err := m.startScanner(ctx, sc); err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}

	m.logger.Info("monitoring started",
		"target", m.target,
		"name", m.cfg.Target.Name,
		"threshold_m", m.cfg.Monitor.DistanceThresholdM,
		"tx_power_at_1m", m.cfg.Signal.TxPowerAt1m,
		"path_loss_exponent", m.cfg.Signal.PathLossExponent,
		"sample_window", m.cfg.Signal.SampleWindow,
	)

	go m.watchdog(ctx)

	for {
		select {
		case adv := <-m.advCh:
			m.processAdvertisement(ctx, adv)
		case <-ctx.Done():
			m.shutdown()
			return nil
		}
	}
}

// HandleAdvertisement is the scan callback. It must stay cheap: stamp
// the arrival, count it and hand off to the consumer queue. A full queue
// drops the advertisement rather than blocking the backend.
func (m *Monitor) HandleAdvertisement(adv model.Advertisement) {
	if adv.Time.IsZero() {
		adv.Time = m.now()
	}
	m.lastPacket.Store(adv.Time.UnixNano())
	m.callbacks.Add(1)

	select {
	case m.advCh <- adv:
	default:
		m.errCount.Add(1)
		m.logger.Debug("advertisement queue full, dropping sample", "address", adv.Address)
	}
}

func (m *Monitor) processAdvertisement(ctx context.Context, adv model.Advertisement) {
	if !strings.EqualFold(adv.Address, m.target) {
		return
	}
	m.matches.Add(1)
	m.noteTargetSeen(adv)

	m.mu.Lock()
	smoothed, distance, ok := m.proc.Update(adv.RSSI)
	m.mu.Unlock()
	if !ok {
		return
	}
	if distance == signal.InvalidDistance {
		m.logger.Debug("unusable reading, skipping decision", "rssi", adv.RSSI)
		return
	}

	m.logger.Debug("signal",
		"rssi", adv.RSSI,
		"smoothed", fmt.Sprintf("%.1f", smoothed),
		"distance_m", fmt.Sprintf("%.2f", distance),
	)

	m.evaluate(ctx, distance)
}

// evaluate runs the alert state machine against a valid distance.
func (m *Monitor) evaluate(ctx context.Context, distance float64) {
	threshold := m.cfg.Monitor.DistanceThresholdM

	m.mu.Lock()
	triggered := m.alertTriggered
	resume := m.resumeTime
	m.mu.Unlock()

	switch {
	case distance > threshold && !triggered:
		if !resume.IsZero() {
			if since := m.now().Sub(resume); since < m.cfg.Monitor.GracePeriod {
				m.logger.Debug("grace period, ignoring out-of-range reading",
					"since_resume", since.Round(100*time.Millisecond),
					"grace", m.cfg.Monitor.GracePeriod,
				)
				return
			}
		}
		m.triggerOutOfRange(ctx, distance)

	case distance <= threshold && triggered:
		m.triggerBackInRange(distance)
	}
}

func (m *Monitor) triggerOutOfRange(ctx context.Context, distance float64) {
	success, status := m.sys.Lock()

	m.mu.Lock()
	m.alertTriggered = true
	m.mu.Unlock()

	m.logger.Warn("device out of range",
		"device", m.cfg.Target.Name,
		"distance_m", fmt.Sprintf("%.2f", distance),
		"threshold_m", m.cfg.Monitor.DistanceThresholdM,
		"locked", success,
		"status", status,
	)
	m.record(model.Event{
		Type:     model.EventOutOfRange,
		Message:  status,
		Distance: distance,
	})

	if success {
		m.spawnLockHandler(ctx, triggerExternalLock)
	}
}

func (m *Monitor) triggerBackInRange(distance float64) {
	m.mu.Lock()
	m.alertTriggered = false
	m.mu.Unlock()

	m.logger.Info("device back in range",
		"device", m.cfg.Target.Name,
		"distance_m", fmt.Sprintf("%.2f", distance),
	)
	m.record(model.Event{
		Type:     model.EventBackInRange,
		Message:  "device back in range",
		Distance: distance,
	})
}

func (m *Monitor) noteTargetSeen(adv model.Advertisement) {
	m.mu.Lock()
	seen := m.targetSeen
	m.targetSeen = true
	m.mu.Unlock()
	if seen {
		return
	}
	m.logger.Info("target device found", "address", adv.Address, "rssi", adv.RSSI)
	m.record(model.Event{
		Type:    model.EventDeviceFound,
		Message: fmt.Sprintf("target found at %d dBm", adv.RSSI),
	})
}

func (m *Monitor) record(ev model.Event) {
	if m.events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now()
	}
	m.events.Add(ev)
}

func (m *Monitor) setScanner(sc scan.Scanner) {
	m.mu.Lock()
	m.scanner = sc
	m.mu.Unlock()
}

func (m *Monitor) currentScanner() scan.Scanner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanner
}

func (m *Monitor) startScanner(ctx context.Context, sc scan.Scanner) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Scanner.StartTimeout)
	defer cancel()
	return sc.Start(ctx)
}

func (m *Monitor) stopScanner(ctx context.Context, sc scan.Scanner) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Scanner.StopTimeout)
	defer cancel()
	return sc.Stop(ctx)
}

func (m *Monitor) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Scanner.StopTimeout)
	defer cancel()
	if sc := m.currentScanner(); sc != nil {
		if err := sc.Stop(ctx); err != nil {
			m.logger.Warn("scanner stop failed during shutdown", "err", err)
		}
	}
	m.logger.Info("monitoring stopped")
}

func (m *Monitor) lastPacketTime() time.Time {
	return time.Unix(0, m.lastPacket.Load())
}

// sleepContext waits for d unless ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
