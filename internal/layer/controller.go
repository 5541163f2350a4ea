// Package layer tracks overdub layers over a loop store and decides when
// the recording path must stop or roll over to a new layer.
package layer

import "github.com/cbegin/looper-go/internal/loopbuf"

// Decision is the controller's verdict after each written sample.
type Decision int

const (
	// KeepRecording: nothing to do, keep writing.
	KeepRecording Decision = iota
	// LayerFull: the layer reached the loop duration with the signal
	// still active; close it and open the next overdub layer.
	LayerFull
	// SilenceClose: the input has been silent past the timeout; close
	// the layer and hand playback over to the loop.
	SilenceClose
)

// Controller owns the write side of a loop store during recording.
type Controller struct {
	store        loopbuf.Store
	maxLayers    int
	loopSamples  int
	silenceLimit int
	padding      int

	count   int // committed layers
	written int // samples in the open layer
	quiet   int // consecutive inactive samples
}

// New creates a controller. loopSamples is the per-layer length,
// silenceLimit the silence timeout and padding the write-ahead distance,
// all in samples.
func New(store loopbuf.Store, maxLayers, loopSamples, silenceLimit, padding int) *Controller {
	return &Controller{
		store:        store,
		maxLayers:    maxLayers,
		loopSamples:  loopSamples,
		silenceLimit: silenceLimit,
		padding:      padding,
	}
}

// Open begins a fresh layer region. When ahead is non-nil the region
// starts the configured padding in front of that cursor, so material it
// is still playing can fade out before being overwritten.
func (c *Controller) Open(ahead *loopbuf.Cursor) {
	c.store.BeginRecording(ahead, c.padding)
	c.written = 0
	c.quiet = 0
}

// Write stores one sample and reports whether the layer must close.
func (c *Controller) Write(s float32, active bool) Decision {
	c.store.WriteSample(s)
	c.written++
	if active {
		c.quiet = 0
	} else {
		c.quiet++
		if c.quiet > c.silenceLimit {
			return SilenceClose
		}
	}
	if c.written >= c.loopSamples && active {
		return LayerFull
	}
	return KeepRecording
}

// Close seals the open region as the loop and returns the new layer
// count.
func (c *Controller) Close() int {
	c.store.CloseLayer()
	c.count++
	return c.count
}

// AtMax reports whether the committed layer count has reached the bound.
func (c *Controller) AtMax() bool { return c.count >= c.maxLayers }

// Retrigger abandons the open layer and starts over: the layer count
// returns to zero so the max-layer guard restarts with the new strike.
func (c *Controller) Retrigger(ahead *loopbuf.Cursor) {
	c.count = 0
	c.Open(ahead)
}

// Reset clears all counters without touching the store.
func (c *Controller) Reset() {
	c.count = 0
	c.written = 0
	c.quiet = 0
}

// Count returns the committed layer count.
func (c *Controller) Count() int { return c.count }

// Written returns the samples written into the open layer.
func (c *Controller) Written() int { return c.written }

// SetLoopSamples adjusts the per-layer length live. The caller clamps
// the value so the region can never outgrow the store.
func (c *Controller) SetLoopSamples(n int) {
	if n > 0 {
		c.loopSamples = n
	}
}
