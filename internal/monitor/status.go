package monitor

import "brios/internal/model"

// Status returns a point-in-time snapshot of the session for display.
func (m *Monitor) Status() model.Status {
	m.mu.Lock()
	st := model.Status{
		TargetAddress:  m.target,
		AlertTriggered: m.alertTriggered,
		Reconnect:      m.reconnect,
		ResumeTime:     m.resumeTime,
		LockCycles:     m.lockCycles,
	}
	m.mu.Unlock()

	st.HandlingLock = m.handlingLock.Load()
	st.LastPacket = m.lastPacketTime()
	st.Callbacks = m.callbacks.Load()
	st.Matches = m.matches.Load()
	st.Errors = m.errCount.Load()
	return st
}
