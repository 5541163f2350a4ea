package envelope

import "math"

// Detector turns a stream of normalized samples into a smoothed signal
// level plus active/onset flags. It is the only part of the core that
// looks at raw audio, so everything here must stay O(1) per sample with
// no allocation.
type Detector struct {
	alpha      float64 // EMA smoothing constant for the squared signal
	threshold  float64 // level above which the signal counts as active
	onsetRatio float64 // tick-to-tick level ratio that counts as a new strike

	rms    float64
	level  float64
	active bool // latched; releases only below threshold*releaseRatio

	// Onset state advances once per control tick, not per sample: the
	// EMA moves too little between adjacent samples for a ratio test.
	prevLevel  float64
	prevActive bool
	seeded     bool
}

// New creates a detector. threshold is the active level in [0,1];
// onsetRatio is the sharp-rise factor for retrigger detection (~2.5).
func New(threshold, onsetRatio float64) *Detector {
	return &Detector{
		alpha:      0.99,
		threshold:  threshold,
		onsetRatio: onsetRatio,
	}
}

// releaseRatio sets the hysteresis band: once active, the signal must
// fall below threshold*releaseRatio before it reads as silent, so quiet
// playing near the threshold does not flutter between states.
const releaseRatio = 0.7

// Process consumes one sample in [-1,1] and returns the smoothed level
// and whether the signal counts as active.
func (d *Detector) Process(sample float64) (level float64, active bool) {
	d.rms = d.alpha*d.rms + (1-d.alpha)*sample*sample
	d.level = math.Sqrt(d.rms)
	if d.active {
		if d.level < d.threshold*releaseRatio {
			d.active = false
		}
	} else if d.level > d.threshold {
		d.active = true
	}
	return d.level, d.active
}

// TickOnset reports whether the level rose sharply since the previous
// tick while the signal was already active, the retrigger condition.
// Call exactly once per control tick, after the tick's samples have
// been processed.
func (d *Detector) TickOnset() bool {
	level := d.level
	active := d.active

	if !d.seeded {
		// Seed from the first computed level so the first tick can
		// never read as a sharp rise.
		d.prevLevel = level
		d.prevActive = active
		d.seeded = true
		return false
	}

	onset := active && d.prevActive && level > d.prevLevel*d.onsetRatio
	d.prevLevel = level
	d.prevActive = active
	return onset
}

// Level returns the current smoothed level.
func (d *Detector) Level() float64 { return d.level }

// Active reports whether the signal currently counts as active.
func (d *Detector) Active() bool { return d.active }

// SetThreshold adjusts the active threshold live.
func (d *Detector) SetThreshold(threshold float64) {
	d.threshold = threshold
}

// Reset clears all smoothing state; used when the detector is re-armed
// so a stale envelope cannot trigger a phantom recording.
func (d *Detector) Reset() {
	d.rms = 0
	d.level = 0
	d.active = false
	d.prevLevel = 0
	d.prevActive = false
	d.seeded = false
}
