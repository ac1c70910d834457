package model

import "time"

type EventType string

const (
	EventDeviceFound   EventType = "device_found"
	EventOutOfRange    EventType = "out_of_range"
	EventBackInRange   EventType = "back_in_range"
	EventScreenLocked  EventType = "screen_locked"
	EventScreenUnlock  EventType = "screen_unlocked"
	EventReconnected   EventType = "reconnected"
	EventReconnectFail EventType = "reconnect_failed"
	EventLoopCooldown  EventType = "loop_cooldown"
	EventWatchdogReset EventType = "watchdog_reset"
)

// Advertisement is one received advertisement from the scan backend.
type Advertisement struct {
	Address string    `json:"address"`
	RSSI    int       `json:"rssi"`
	Time    time.Time `json:"time"`
}

// Reading is a processed signal sample: the raw RSSI that produced it,
// the smoothed window mean and the distance estimate in meters.
// Distance is -1.0 when the smoothed reading is unusable (0 dBm).
type Reading struct {
	RSSI     int     `json:"rssi"`
	Smoothed float64 `json:"smoothed"`
	Distance float64 `json:"distance_m"`
}

// Event is a notable occurrence in a monitoring session, kept in the
// in-memory session log and surfaced through the status output.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Distance  float64           `json:"distance_m,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// ReconnectState tracks where the reconnect procedure currently is.
type ReconnectState string

const (
	ReconnectActive     ReconnectState = "active"
	ReconnectStopping   ReconnectState = "stopping"
	ReconnectWaiting    ReconnectState = "waiting_for_unlock"
	ReconnectRestarting ReconnectState = "restarting"
	ReconnectFailed     ReconnectState = "failed"
)

// Status is a read-only snapshot of a monitoring session.
type Status struct {
	TargetAddress  string         `json:"target_address"`
	AlertTriggered bool           `json:"alert_triggered"`
	HandlingLock   bool           `json:"handling_lock"`
	Reconnect      ReconnectState `json:"reconnect_state"`
	LastPacket     time.Time      `json:"last_packet"`
	ResumeTime     time.Time      `json:"resume_time"`
	Callbacks      uint64         `json:"callbacks"`
	Matches        uint64         `json:"matches"`
	Errors         uint64         `json:"errors"`
	LockCycles     int            `json:"lock_cycles"`
}
