package swell

import (
	"math"
	"time"
)

// Envelope produces a monotonic gain curve over a configurable duration.
// The same curve serves the input swell-in and, with its complement,
// both halves of a loop crossfade: newGain + (1-newGain) sums to exactly
// one at every instant, so transitions carry no volume dip or spike.
type Envelope struct {
	start    time.Duration
	duration time.Duration
	active   bool
}

// Start begins (or restarts) the envelope at the given session clock.
func (e *Envelope) Start(now, duration time.Duration) {
	e.start = now
	e.duration = duration
	// A zero duration is a degenerate swell: instantly at full gain.
	e.active = duration > 0
}

// Gain returns the envelope gain in [0,1] at the given session clock.
// The curve is logarithmic, ln(1+9t)/ln(10), so perceived loudness ramps
// roughly linearly. Once the gain reaches 1.0 the envelope deactivates
// itself and keeps returning 1 until restarted.
func (e *Envelope) Gain(now time.Duration) float64 {
	if !e.active {
		return 1
	}
	t := float64(now-e.start) / float64(e.duration)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		e.active = false
		return 1
	}
	return math.Log1p(9*t) / math.Ln10
}

// Active reports whether the envelope is still ramping.
func (e *Envelope) Active() bool { return e.active }

// Stop deactivates the envelope without completing it (gain snaps to 1
// on the next query; callers that need a click-free cut apply their own
// safety ramp).
func (e *Envelope) Stop() { e.active = false }
