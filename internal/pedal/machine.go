// Package pedal sequences the looper's lifecycle: it feeds the envelope
// detector and tap classifier, drives the layer controller over the loop
// store, and blends live input with loop playback through swell and
// crossfade envelopes. One Tick handles one audio block plus one
// footswitch reading; nothing here blocks, sleeps, or allocates on the
// audio path after construction.
package pedal

import (
	"time"

	"github.com/cbegin/looper-go/internal/envelope"
	"github.com/cbegin/looper-go/internal/layer"
	"github.com/cbegin/looper-go/internal/loopbuf"
	"github.com/cbegin/looper-go/internal/swell"
	"github.com/cbegin/looper-go/internal/tap"
	"github.com/cbegin/looper-go/internal/trace"
)

// Mode is the pedal's authoritative state. Transitions are the only
// place allowed to move loop region markers.
type Mode int

const (
	Idle Mode = iota
	Listening
	Recording
	Looping
	Bypassed
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Recording:
		return "recording"
	case Looping:
		return "looping"
	case Bypassed:
		return "bypassed"
	default:
		return "unknown"
	}
}

// EventKind classifies machine notifications.
type EventKind int

const (
	EventMode  EventKind = iota // mode transition
	EventLayer                  // a layer closed
	EventReset                  // double-tap full reset
)

// Event is a machine notification delivered synchronously from Tick.
type Event struct {
	Kind  EventKind
	From  Mode
	To    Mode
	Layer int
	At    time.Duration
}

// Params are the machine's sample-domain settings, derived from the
// user-facing configuration and validated before the machine exists.
type Params struct {
	SampleRate     int
	LoopSamples    int // per-layer length
	FadeSamples    int // swell and crossfade length
	SilenceSamples int // silence timeout
	PaddingSamples int // write-ahead distance for concurrent record/play
	Threshold      float64
	OnsetRatio     float64
	MaxLayers      int
	Debounce       time.Duration
	TapWindow      time.Duration
}

// Machine is the pedal state machine. It is single-threaded by design:
// one caller advances it tick by tick.
type Machine struct {
	p      Params
	store  loopbuf.Store
	det    *envelope.Detector
	taps   *tap.Classifier
	layers *layer.Controller

	mode  Mode
	clock int64 // samples processed since construction

	swellIn swell.Envelope // input swell; restarts per layer open and retrigger
	fadeOut swell.Envelope // old-material fade; runs once per recording entry
	loopIn  swell.Envelope // playback fade-in when a new loop starts or unmutes
	mute    swell.Envelope // bypass mute ramp

	playCur *loopbuf.Cursor // active loop playback
	fadeCur *loopbuf.Cursor // old region fading out under a new recording

	log    *trace.Logger
	notify func(Event)
}

// New creates a machine over the given store. log and notify may be nil.
func New(store loopbuf.Store, p Params, log *trace.Logger, notify func(Event)) *Machine {
	return &Machine{
		p:      p,
		store:  store,
		det:    envelope.New(p.Threshold, p.OnsetRatio),
		taps:   tap.New(p.Debounce, p.TapWindow),
		layers: layer.New(store, p.MaxLayers, p.LoopSamples, p.SilenceSamples, p.PaddingSamples),
		log:    log,
		notify: notify,
	}
}

// Mode returns the current pedal mode.
func (m *Machine) Mode() Mode { return m.mode }

// Level returns the detector's current smoothed signal level.
func (m *Machine) Level() float64 { return m.det.Level() }

// Layers returns the committed overdub layer count.
func (m *Machine) Layers() int { return m.layers.Count() }

// Clock returns the session clock.
func (m *Machine) Clock() time.Duration { return m.now() }

// SetLoopSamples adjusts the per-layer length live (already clamped by
// the caller); takes effect at the next layer open.
func (m *Machine) SetLoopSamples(n int) { m.layers.SetLoopSamples(n) }

// SetFadeSamples adjusts the swell/crossfade length live (already
// clamped by the caller); takes effect at the next fade start.
func (m *Machine) SetFadeSamples(n int) {
	if n > 0 {
		m.p.FadeSamples = n
	}
}

// SetThreshold adjusts the signal threshold live.
func (m *Machine) SetThreshold(v float64) { m.det.SetThreshold(v) }

// Tick processes one audio block and then one footswitch reading, in
// that order. in and out must be the same length; out may alias in.
func (m *Machine) Tick(in, out []float32, pressed bool) {
	for i := range in {
		out[i] = m.processSample(float64(in[i]))
		m.clock++
	}
	if m.det.TickOnset() && m.mode == Recording {
		m.retrigger()
	}
	if ev, ok := m.taps.Sample(pressed, m.now()); ok {
		if ev.Kind == tap.Double {
			m.resetWithRamp(out)
			return
		}
		m.singleTap()
	}
}

func (m *Machine) now() time.Duration {
	return time.Duration(m.clock) * time.Second / time.Duration(m.p.SampleRate)
}

func (m *Machine) fadeDur() time.Duration {
	return time.Duration(m.p.FadeSamples) * time.Second / time.Duration(m.p.SampleRate)
}

func (m *Machine) processSample(s float64) float32 {
	now := m.now()
	_, active := m.det.Process(s)

	switch m.mode {
	case Idle:
		return float32(s)

	case Listening:
		if !active {
			return float32(s)
		}
		m.enterRecording(now)
		return m.recordSample(s, active, now)

	case Recording:
		return m.recordSample(s, active, now)

	case Looping:
		if active {
			m.enterOverdub(now)
			return m.recordSample(s, active, now)
		}
		return float32(s) + m.loopSample(now, 1)

	case Bypassed:
		// The loop keeps running silently underneath so un-bypassing
		// comes back in time; only its gain is ramped away.
		return float32(s) + m.loopSample(now, 1-m.mute.Gain(now))
	}
	return float32(s)
}

// loopSample reads one sample of loop playback (plus any old-region fade
// tail) scaled by gain.
func (m *Machine) loopSample(now time.Duration, gain float64) float32 {
	var wet float64
	if m.playCur != nil {
		wet = float64(m.store.ReadSample(m.playCur)) * m.loopIn.Gain(now)
		m.store.Advance(m.playCur)
	}
	if m.fadeCur != nil {
		wet += float64(m.store.ReadSample(m.fadeCur)) * (1 - m.fadeOut.Gain(now))
		m.store.Advance(m.fadeCur)
		if !m.fadeOut.Active() {
			m.fadeCur = nil
		}
	}
	return float32(wet * gain)
}

// recordSample writes one sample of the new layer: swelled input plus
// the complementary fade-out of whatever the old region is still
// playing. The mix is both what the listener hears and what the layer
// captures, so earlier material survives inside the recording.
func (m *Machine) recordSample(s float64, active bool, now time.Duration) float32 {
	rec := s * m.swellIn.Gain(now)
	if m.fadeCur != nil {
		rec += float64(m.store.ReadSample(m.fadeCur)) * (1 - m.fadeOut.Gain(now))
		m.store.Advance(m.fadeCur)
		if !m.fadeOut.Active() {
			m.fadeCur = nil
		}
	}
	switch m.layers.Write(float32(rec), active) {
	case layer.SilenceClose:
		n := m.layers.Close()
		m.layerClosed(n, now)
		m.startLooping(now, "silence")
	case layer.LayerFull:
		m.rollLayer(now)
	}
	return float32(rec)
}

// rollLayer closes a full layer and either chains the next overdub layer
// or, at the layer bound, hands over to loop playback. A still-active
// input swell defers the forced close; the configuration precondition
// (maxLayers*minLoop >= maxFade) keeps that branch theoretical.
func (m *Machine) rollLayer(now time.Duration) {
	n := m.layers.Close()
	m.layerClosed(n, now)
	if m.layers.AtMax() && !m.swellIn.Active() {
		m.startLooping(now, "max layers")
		return
	}
	m.fadeCur = m.store.NewCursor()
	m.fadeOut.Start(now, m.fadeDur())
	m.layers.Open(m.fadeCur)
}

// retrigger abandons the current layer on a new strike: the layer count
// restarts and the input swells in again. The old-region fade keeps its
// own schedule so the abandoned-layer transition carries no step.
func (m *Machine) retrigger() {
	now := m.now()
	m.layers.Retrigger(m.fadeCur)
	m.swellIn.Start(now, m.fadeDur())
	m.log.Logf("pedal", "retrigger: new strike while recording")
}

func (m *Machine) enterRecording(now time.Duration) {
	m.swellIn.Start(now, m.fadeDur())
	m.layers.Open(nil)
	m.setMode(Recording, now, "signal detected")
}

// enterOverdub starts recording on top of a playing loop: the playback
// cursor becomes the fade-out cursor and the new region opens a safe
// padding ahead of it. The layer count restarts; an overdub is a fresh
// recording pass, not a continuation of the one that built the loop.
func (m *Machine) enterOverdub(now time.Duration) {
	m.fadeCur = m.playCur
	m.playCur = nil
	m.fadeOut.Start(now, m.fadeDur())
	m.swellIn.Start(now, m.fadeDur())
	m.layers.Retrigger(m.fadeCur)
	m.setMode(Recording, now, "signal over loop")
}

func (m *Machine) startLooping(now time.Duration, reason string) {
	m.playCur = m.store.NewCursor()
	m.loopIn.Start(now, m.fadeDur())
	m.setMode(Looping, now, reason)
}

func (m *Machine) singleTap() {
	now := m.now()
	switch m.mode {
	case Idle:
		m.det.Reset() // arm: stale envelope must not trigger recording
		m.setMode(Listening, now, "armed")
	case Listening:
		m.setMode(Idle, now, "disarmed")
	case Looping:
		m.mute.Start(now, m.fadeDur())
		m.setMode(Bypassed, now, "bypass engaged")
	case Bypassed:
		m.mute.Stop()
		m.loopIn.Start(now, m.fadeDur())
		m.setMode(Looping, now, "bypass released")
	default:
		// Absorbed: taps during Recording are not an error.
	}
}

// resetWithRamp handles the double tap: the block already rendered from
// the pre-reset state is scaled under a descending gain ramp, then
// everything is cleared. The post-tick state is Idle with all markers at
// zero, and the output never cuts hard.
func (m *Machine) resetWithRamp(out []float32) {
	from := m.mode
	n := len(out)
	for i := range out {
		out[i] *= float32(1 - float64(i+1)/float64(n))
	}
	m.store.Reset()
	m.layers.Reset()
	m.playCur = nil
	m.fadeCur = nil
	m.swellIn.Stop()
	m.fadeOut.Stop()
	m.loopIn.Stop()
	m.mute.Stop()
	m.det.Reset()
	m.mode = Idle
	m.log.Logf("pedal", "%s -> idle (double tap: full reset)", from)
	m.event(Event{Kind: EventReset, From: from, To: Idle, At: m.now()})
}

func (m *Machine) setMode(to Mode, now time.Duration, reason string) {
	from := m.mode
	m.mode = to
	m.log.Logf("pedal", "%s -> %s (%s)", from, to, reason)
	m.event(Event{Kind: EventMode, From: from, To: to, At: now})
}

func (m *Machine) layerClosed(n int, now time.Duration) {
	m.log.Logf("pedal", "layer %d closed", n)
	m.event(Event{Kind: EventLayer, Layer: n, To: m.mode, From: m.mode, At: now})
}

func (m *Machine) event(ev Event) {
	if m.notify != nil {
		m.notify(ev)
	}
}
