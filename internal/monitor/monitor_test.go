package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brios/internal/config"
	"brios/internal/events"
	"brios/internal/logging"
	"brios/internal/model"
	"brios/internal/scan"
)

const testAddr = "AA:BB:CC:DD:EE:FF"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeSystem struct {
	mu            sync.Mutex
	locked        bool
	unlockAfter   int // IsLocked reports unlocked after this many calls, 0 = never flips
	lockSuccess   bool
	lockCalls     int
	isLockedCalls int
}

func (f *fakeSystem) IsLocked() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isLockedCalls++
	if f.unlockAfter > 0 && f.isLockedCalls >= f.unlockAfter {
		f.locked = false
	}
	return f.locked, nil
}

func (f *fakeSystem) Lock() (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls++
	return f.lockSuccess, "fake lock"
}

func (f *fakeSystem) stats() (lockCalls, isLockedCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockCalls, f.isLockedCalls
}

type fakeScanner struct {
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (f *fakeScanner) Start(ctx context.Context) error {
	if f.start == nil {
		return nil
	}
	return f.start(ctx)
}

func (f *fakeScanner) Stop(ctx context.Context) error {
	if f.stop == nil {
		return nil
	}
	return f.stop(ctx)
}

// okFactory counts scanner creations, every scanner succeeding.
func okFactory(created *atomic.Int32) scan.Factory {
	return func(cb scan.Callback) scan.Scanner {
		if created != nil {
			created.Add(1)
		}
		return &fakeScanner{}
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Target.MAC = testAddr
	cfg.Target.UseBDAddr = true
	cfg.Signal.SampleWindow = 3
	return cfg
}

func newTestMonitor(cfg *config.Config, sys *fakeSystem, factory scan.Factory) (*Monitor, *fakeClock) {
	if factory == nil {
		factory = okFactory(nil)
	}
	m := New(cfg, logging.Discard(), events.NewStore(100), sys, factory)
	clk := newFakeClock()
	m.now = clk.Now
	m.sleep = func(ctx context.Context, d time.Duration) bool {
		clk.Advance(d)
		return ctx.Err() == nil
	}
	m.lastPacket.Store(clk.Now().UnixNano())
	return m, clk
}

func feed(m *Monitor, clk *fakeClock, rssi ...int) {
	for _, v := range rssi {
		m.processAdvertisement(context.Background(), model.Advertisement{
			Address: testAddr,
			RSSI:    v,
			Time:    clk.Now(),
		})
	}
}

func TestOutOfRangeTriggersSingleLockThenClears(t *testing.T) {
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, nil)

	// ~3.7m smoothed, past the 2.0m threshold.
	feed(m, clk, -74, -75, -76)
	lockCalls, _ := sys.stats()
	assert.Equal(t, 1, lockCalls)
	assert.True(t, m.Status().AlertTriggered)

	// Still out of range: no second lock.
	feed(m, clk, -76)
	lockCalls, _ = sys.stats()
	assert.Equal(t, 1, lockCalls)

	// ~0.5m: back in range clears the alert without touching the OS.
	feed(m, clk, -50, -51, -49)
	lockCalls, _ = sys.stats()
	assert.Equal(t, 1, lockCalls)
	assert.False(t, m.Status().AlertTriggered)
}

func TestGracePeriodSuppressesLock(t *testing.T) {
	sys := &fakeSystem{}
	cfg := testConfig()
	m, clk := newTestMonitor(cfg, sys, nil)

	m.mu.Lock()
	m.resumeTime = clk.Now()
	m.mu.Unlock()

	feed(m, clk, -80, -80, -80)
	lockCalls, _ := sys.stats()
	assert.Zero(t, lockCalls, "lock during grace period")
	assert.False(t, m.Status().AlertTriggered)

	clk.Advance(cfg.Monitor.GracePeriod)
	feed(m, clk, -80)
	lockCalls, _ = sys.stats()
	assert.Equal(t, 1, lockCalls, "lock after grace period")
}

func TestInvalidReadingMakesNoDecision(t *testing.T) {
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, nil)

	feed(m, clk, 0, 0, 0)
	lockCalls, _ := sys.stats()
	assert.Zero(t, lockCalls)
	assert.False(t, m.Status().AlertTriggered)
}

func TestOtherDevicesAreIgnored(t *testing.T) {
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, nil)

	for i := 0; i < 5; i++ {
		m.processAdvertisement(context.Background(), model.Advertisement{
			Address: "11:22:33:44:55:66",
			RSSI:    -90,
			Time:    clk.Now(),
		})
	}
	lockCalls, _ := sys.stats()
	assert.Zero(t, lockCalls)
	assert.Zero(t, m.Status().Matches)
}

func TestAddressMatchingIsCaseInsensitive(t *testing.T) {
	sys := &fakeSystem{}
	m, clk := newTestMonitor(testConfig(), sys, nil)

	m.processAdvertisement(context.Background(), model.Advertisement{
		Address: "aa:bb:cc:dd:ee:ff",
		RSSI:    -60,
		Time:    clk.Now(),
	})
	assert.Equal(t, uint64(1), m.Status().Matches)
}

func TestCallbackQueueDropsWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.EventBuffer = 1
	sys := &fakeSystem{}
	m, _ := newTestMonitor(cfg, sys, nil)

	before := m.lastPacketTime()
	m.HandleAdvertisement(model.Advertisement{Address: testAddr, RSSI: -60})
	m.HandleAdvertisement(model.Advertisement{Address: testAddr, RSSI: -61})

	st := m.Status()
	assert.Equal(t, uint64(2), st.Callbacks)
	assert.Equal(t, uint64(1), st.Errors, "second sample should be dropped")
	assert.False(t, m.lastPacketTime().Before(before))
}

func TestLockSuccessSpawnsHandler(t *testing.T) {
	sys := &fakeSystem{lockSuccess: true, locked: false}
	var created atomic.Int32
	m, clk := newTestMonitor(testConfig(), sys, okFactory(&created))

	feed(m, clk, -80, -80, -80)

	require.Eventually(t, func() bool {
		return !m.Status().HandlingLock && m.Status().LockCycles == 1
	}, 2*time.Second, 5*time.Millisecond)

	st := m.Status()
	assert.Equal(t, model.ReconnectActive, st.Reconnect)
	assert.False(t, st.ResumeTime.IsZero())
	assert.Equal(t, int32(1), created.Load(), "handler should create one fresh scanner")
}
