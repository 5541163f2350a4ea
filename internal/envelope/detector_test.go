package envelope

import (
	"math"
	"testing"
)

// feed pushes n samples of a ±amp square wave through the detector and
// returns the final level/active pair.
func feed(d *Detector, amp float64, n int) (float64, bool) {
	var level float64
	var active bool
	for i := 0; i < n; i++ {
		s := amp
		if i%2 == 1 {
			s = -amp
		}
		level, active = d.Process(s)
	}
	return level, active
}

func TestDetectorActiveAboveThreshold(t *testing.T) {
	d := New(0.02, 2.5)
	level, active := feed(d, 0.5, 5000)
	if !active {
		t.Fatalf("sustained 0.5 signal should be active, level=%f", level)
	}
	if math.Abs(level-0.5) > 0.01 {
		t.Errorf("level = %f, want ~0.5", level)
	}
}

func TestDetectorSilenceInactive(t *testing.T) {
	d := New(0.02, 2.5)
	if _, active := feed(d, 0, 1000); active {
		t.Error("silence should never be active")
	}
}

func TestDetectorHysteresisHoldsNearThreshold(t *testing.T) {
	d := New(0.1, 2.5)
	feed(d, 0.5, 2000)
	// A square wave of amplitude a settles at level a exactly. Just
	// under the threshold is inside the hysteresis band: still active.
	if level, active := feed(d, 0.09, 5000); !active {
		t.Errorf("level %f just under threshold should stay active", level)
	}
	// Well below the release band the latch lets go.
	if level, active := feed(d, 0.05, 5000); active {
		t.Errorf("level %f far below threshold should be inactive", level)
	}
}

func TestDetectorNoSpuriousOnsetOnFirstTick(t *testing.T) {
	d := New(0.001, 2.5)
	// First tick is loud; prevLevel is seeded from it, so no onset.
	feed(d, 0.9, 128)
	if d.TickOnset() {
		t.Error("first tick must not produce an onset")
	}
}

func TestDetectorOnsetOnSharpRiseWhileActive(t *testing.T) {
	d := New(0.02, 2.5)
	// Settle into a quiet-but-active signal over several ticks.
	for tick := 0; tick < 40; tick++ {
		feed(d, 0.05, 128)
		d.TickOnset()
	}
	// Hit with a much louder strike: one block is enough for the EMA
	// to rise well past 2.5x the previous tick's level.
	feed(d, 1.0, 128)
	if !d.TickOnset() {
		t.Errorf("sharp rise while active should produce an onset, level=%f", d.Level())
	}
}

func TestDetectorNoOnsetFromSilence(t *testing.T) {
	d := New(0.02, 2.5)
	feed(d, 0, 256)
	d.TickOnset()
	// A strike from silence is a plain activation, not a retrigger.
	for tick := 0; tick < 40; tick++ {
		feed(d, 0.8, 128)
		if d.TickOnset() {
			t.Fatal("strike from silence must not read as onset-while-active")
		}
	}
}

func TestDetectorNoOnsetWithoutRise(t *testing.T) {
	d := New(0.02, 2.5)
	for tick := 0; tick < 80; tick++ {
		feed(d, 0.5, 128)
		if tick > 2 && d.TickOnset() {
			t.Fatal("steady signal must not produce onsets")
		} else if tick <= 2 {
			d.TickOnset()
		}
	}
}

func TestDetectorReset(t *testing.T) {
	d := New(0.02, 2.5)
	feed(d, 0.9, 1000)
	d.Reset()
	if d.Level() != 0 {
		t.Errorf("level after reset = %f, want 0", d.Level())
	}
	feed(d, 0.9, 128)
	if d.TickOnset() {
		t.Error("first tick after reset must not produce an onset")
	}
}
