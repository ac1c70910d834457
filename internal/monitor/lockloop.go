package monitor

import (
	"sync"
	"time"
)

// LoopBreaker detects rapid lock/unlock cycling. Each completed
// lock-to-unlock cycle records a timestamp into a ring capped at the
// loop threshold; once the ring is full and its oldest and newest
// entries fall inside the window, the breaker fires and the caller must
// pause for the configured penalty, then clear the history.
type LoopBreaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	history   []time.Time
}

func NewLoopBreaker(threshold int, window time.Duration) *LoopBreaker {
	if threshold < 2 {
		threshold = 2
	}
	return &LoopBreaker{
		threshold: threshold,
		window:    window,
		history:   make([]time.Time, 0, threshold),
	}
}

// RecordAndCheck appends now and reports whether a cooldown is due.
func (b *LoopBreaker) RecordAndCheck(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) == b.threshold {
		copy(b.history, b.history[1:])
		b.history[len(b.history)-1] = now
	} else {
		b.history = append(b.history, now)
	}
	return len(b.history) == b.threshold && now.Sub(b.history[0]) < b.window
}

func (b *LoopBreaker) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = b.history[:0]
}

func (b *LoopBreaker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}
