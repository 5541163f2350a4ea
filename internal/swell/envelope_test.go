package swell

import (
	"math"
	"testing"
	"time"
)

func TestGainMonotonicAndExactAtDuration(t *testing.T) {
	var e Envelope
	d := 1500 * time.Millisecond
	e.Start(0, d)

	prev := -1.0
	steps := 2000
	for i := 0; i <= steps; i++ {
		now := time.Duration(int64(d) * int64(i) / int64(steps))
		g := e.Gain(now)
		if g < prev {
			t.Fatalf("gain not monotonic: %f after %f at step %d", g, prev, i)
		}
		if g < 0 || g > 1 {
			t.Fatalf("gain out of range: %f", g)
		}
		prev = g
	}
	e.Start(0, d)
	if g := e.Gain(d); g != 1.0 {
		t.Errorf("gain at duration = %v, want exactly 1.0", g)
	}
}

func TestGainDeactivatesAtCompletion(t *testing.T) {
	var e Envelope
	e.Start(0, time.Second)
	if !e.Active() {
		t.Fatal("envelope should be active after Start")
	}
	e.Gain(2 * time.Second)
	if e.Active() {
		t.Error("envelope should deactivate once gain reaches 1")
	}
	if g := e.Gain(3 * time.Second); g != 1 {
		t.Errorf("finished envelope gain = %v, want 1", g)
	}
}

func TestCrossfadeConservation(t *testing.T) {
	var e Envelope
	d := time.Second
	e.Start(0, d)
	for i := 0; i <= 1000; i++ {
		now := time.Duration(int64(d) * int64(i) / int64(1000))
		g := e.Gain(now)
		if math.Abs((g+(1-g))-1.0) > 1e-12 {
			t.Fatalf("newGain+oldGain != 1 at %v", now)
		}
	}
}

func TestZeroDurationIsInstantlyFull(t *testing.T) {
	var e Envelope
	e.Start(0, 0)
	if e.Active() {
		t.Error("zero-duration swell should not be active")
	}
	if g := e.Gain(0); g != 1 {
		t.Errorf("gain = %v, want 1", g)
	}
}

func TestGainBeforeStartIsZero(t *testing.T) {
	var e Envelope
	e.Start(time.Second, time.Second)
	if g := e.Gain(500 * time.Millisecond); g != 0 {
		t.Errorf("gain before start = %v, want 0", g)
	}
}

func TestLogCurveShape(t *testing.T) {
	var e Envelope
	e.Start(0, time.Second)
	// ln(1+9*0.5)/ln(10) = ln(5.5)/ln(10) ≈ 0.7404: the curve front-loads
	// gain, which is what makes the ramp sound linear.
	g := e.Gain(500 * time.Millisecond)
	want := math.Log(5.5) / math.Log(10)
	if math.Abs(g-want) > 1e-9 {
		t.Errorf("gain at t=0.5 = %f, want %f", g, want)
	}
}
