// Package signal turns raw RSSI samples into smoothed readings and
// distance estimates via the log-distance path-loss model.
package signal

import "math"

// InvalidDistance is returned when the smoothed reading is 0 dBm, which
// only happens on unusable radio readings. Callers treat it as "no
// decision", never as zero meters.
const InvalidDistance = -1.0

// Processor maintains a fixed-capacity FIFO window of RSSI samples and
// derives a smoothed reading plus a distance estimate once the window is
// full. Early readings are noisy, so nothing is emitted before that.
type Processor struct {
	txPowerAt1m      int
	pathLossExponent float64

	samples []int
	head    int
	count   int
	sum     int
}

func NewProcessor(window, txPowerAt1m int, pathLossExponent float64) *Processor {
	if window < 1 {
		window = 1
	}
	return &Processor{
		txPowerAt1m:      txPowerAt1m,
		pathLossExponent: pathLossExponent,
		samples:          make([]int, window),
	}
}

// Update appends a sample, evicting the oldest when the window is at
// capacity. It returns ok=false until the window has filled, after which
// every call yields the arithmetic mean of the window and the distance
// estimate in meters.
func (p *Processor) Update(sample int) (smoothed, distance float64, ok bool) {
	if p.count == len(p.samples) {
		p.sum -= p.samples[p.head]
	} else {
		p.count++
	}
	p.samples[p.head] = sample
	p.sum += sample
	p.head = (p.head + 1) % len(p.samples)

	if p.count < len(p.samples) {
		return 0, 0, false
	}
	smoothed = float64(p.sum) / float64(p.count)
	return smoothed, p.Estimate(smoothed), true
}

// Estimate converts a smoothed RSSI into meters:
//
//	d = 10 ^ ((txPowerAt1m - rssi) / (10 * n))
//
// A 0 dBm reading yields InvalidDistance.
func (p *Processor) Estimate(rssi float64) float64 {
	if rssi == 0 {
		return InvalidDistance
	}
	return math.Pow(10, (float64(p.txPowerAt1m)-rssi)/(10*p.pathLossExponent))
}

// Len reports the number of samples currently held.
func (p *Processor) Len() int {
	return p.count
}

// Full reports whether the window has reached capacity.
func (p *Processor) Full() bool {
	return p.count == len(p.samples)
}

// Reset discards all samples. Called on reconnect so stale signal
// context from before the pause cannot feed a decision.
func (p *Processor) Reset() {
	p.head = 0
	p.count = 0
	p.sum = 0
}
