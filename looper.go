// Package looper implements a swell looper: it listens to a mono input,
// swells a new recording in when playing starts, stacks overdub layers,
// and hands the result to seamless loop playback. The public Session
// wraps the pedal state machine behind a small control surface meant to
// be driven from an audio callback plus any number of UI threads.
package looper

import (
	"fmt"
	"io"
	"sync"
	"time"

	intloop "github.com/cbegin/looper-go/internal/loopbuf"
	intpedal "github.com/cbegin/looper-go/internal/pedal"
	inttrace "github.com/cbegin/looper-go/internal/trace"
)

// Mode mirrors the pedal's lifecycle state for API consumers.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListening
	ModeRecording
	ModeLooping
	ModeBypassed
)

func (m Mode) String() string { return intpedal.Mode(m).String() }

// Event carries state notifications from Watch().
type Event struct {
	Kind  int // EventModeChanged, EventLayerClosed, or EventReset
	From  Mode
	To    Mode
	Layer int
	At    time.Duration // session clock at the transition
}

const (
	EventModeChanged int = iota
	EventLayerClosed
	EventReset
)

// BufferMode selects the loop storage strategy.
type BufferMode string

const (
	// BufferRing records into one circular buffer whose loop region may
	// wrap past the physical end.
	BufferRing BufferMode = "ring"
	// BufferPingPong alternates between two fixed buffers, one playing
	// while the other records.
	BufferPingPong BufferMode = "pingpong"
)

// Config is the user-facing looper configuration. Durations are wall
// time; NewSession converts everything to samples once up front.
type Config struct {
	SampleRate      int
	BlockSize       int           // samples per ProcessBlock call
	LoopDuration    time.Duration // per-layer length (also the loop knob maximum)
	MinLoopDuration time.Duration // loop knob minimum
	FadeDuration    time.Duration // swell and crossfade length (also the fade knob maximum)
	SilenceTimeout  time.Duration // recording closes after this much silence
	SignalThreshold float64       // envelope level treated as playing
	OnsetRatio      float64       // level jump between ticks treated as a new strike
	MaxLayers       int
	DebounceDelay   time.Duration
	TapWindow       time.Duration
	BufferMode      BufferMode
}

// DefaultConfig returns the stage-ready defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		BlockSize:       128,
		LoopDuration:    4 * time.Second,
		MinLoopDuration: 500 * time.Millisecond,
		FadeDuration:    1500 * time.Millisecond,
		SilenceTimeout:  300 * time.Millisecond,
		SignalThreshold: 0.02,
		OnsetRatio:      2.5,
		MaxLayers:       4,
		DebounceDelay:   25 * time.Millisecond,
		TapWindow:       400 * time.Millisecond,
		BufferMode:      BufferRing,
	}
}

// Validate checks the configuration. The fade bound against
// MaxLayers*MinLoopDuration guarantees a forced layer close can never
// land inside an unfinished swell.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", c.BlockSize)
	}
	if c.MinLoopDuration <= 0 {
		return fmt.Errorf("min loop duration must be positive, got %v", c.MinLoopDuration)
	}
	if c.LoopDuration < c.MinLoopDuration {
		return fmt.Errorf("loop duration %v below minimum %v", c.LoopDuration, c.MinLoopDuration)
	}
	if c.FadeDuration <= 0 {
		return fmt.Errorf("fade duration must be positive, got %v", c.FadeDuration)
	}
	if c.SilenceTimeout <= 0 {
		return fmt.Errorf("silence timeout must be positive, got %v", c.SilenceTimeout)
	}
	if c.SignalThreshold <= 0 {
		return fmt.Errorf("signal threshold must be positive, got %v", c.SignalThreshold)
	}
	if c.OnsetRatio <= 1 {
		return fmt.Errorf("onset ratio must exceed 1, got %v", c.OnsetRatio)
	}
	if c.MaxLayers <= 0 {
		return fmt.Errorf("max layers must be positive, got %d", c.MaxLayers)
	}
	if c.DebounceDelay <= 0 || c.TapWindow <= c.DebounceDelay {
		return fmt.Errorf("tap window %v must exceed debounce %v, both positive", c.TapWindow, c.DebounceDelay)
	}
	if c.FadeDuration > time.Duration(c.MaxLayers)*c.MinLoopDuration {
		return fmt.Errorf("fade %v exceeds max layers x min loop (%v)",
			c.FadeDuration, time.Duration(c.MaxLayers)*c.MinLoopDuration)
	}
	switch c.BufferMode {
	case BufferRing, BufferPingPong, "":
	default:
		return fmt.Errorf("unknown buffer mode %q", c.BufferMode)
	}
	return nil
}

func (c Config) samples(d time.Duration) int {
	return int(d * time.Duration(c.SampleRate) / time.Second)
}

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	traceW io.Writer
}

// WithTrace enables diagnostic state-transition logging to w.
func WithTrace(w io.Writer) SessionOption {
	return func(sc *sessionConfig) {
		sc.traceW = w
	}
}

// Session is a running looper instance. ProcessBlock is meant for the
// audio callback; every other method may be called from any goroutine.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	store   intloop.Store
	machine *intpedal.Machine
	volume  float64

	eventCh   chan Event
	eventChMu sync.Mutex
}

// NewSession validates cfg and builds a session. The loop store is
// sized once here: worst-case region (loop length plus the silence
// overrun) plus the write-ahead padding, so recording never chases its
// own playback cursor.
func NewSession(cfg Config, opts ...SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var sc sessionConfig
	for _, opt := range opts {
		opt(&sc)
	}

	padding := cfg.samples(cfg.FadeDuration) + cfg.BlockSize
	capacity := cfg.samples(cfg.LoopDuration) + cfg.samples(cfg.SilenceTimeout) + padding + cfg.BlockSize

	var store intloop.Store
	switch cfg.BufferMode {
	case BufferPingPong:
		store = intloop.NewPingPong(capacity)
	default:
		store = intloop.NewRing(capacity)
	}

	var log *inttrace.Logger
	if sc.traceW != nil {
		log = inttrace.New(sc.traceW)
	}

	s := &Session{cfg: cfg, store: store, volume: 1}
	params := intpedal.Params{
		SampleRate:     cfg.SampleRate,
		LoopSamples:    cfg.samples(cfg.LoopDuration),
		FadeSamples:    cfg.samples(cfg.FadeDuration),
		SilenceSamples: cfg.samples(cfg.SilenceTimeout),
		PaddingSamples: padding,
		Threshold:      cfg.SignalThreshold,
		OnsetRatio:     cfg.OnsetRatio,
		MaxLayers:      cfg.MaxLayers,
		Debounce:       cfg.DebounceDelay,
		TapWindow:      cfg.TapWindow,
	}
	s.machine = intpedal.New(store, params, log, func(ev intpedal.Event) {
		s.sendEvent(Event{
			Kind:  int(ev.Kind),
			From:  Mode(ev.From),
			To:    Mode(ev.To),
			Layer: ev.Layer,
			At:    ev.At,
		})
	})
	return s, nil
}

// Config returns the session's configuration.
func (s *Session) Config() Config { return s.cfg }

// ProcessBlock advances the looper by one audio block: in is the dry
// input, out receives dry plus loop playback scaled by the master
// volume, and pressed is the footswitch level sampled once for the
// block. in and out must both be cfg.BlockSize long; out may alias in.
func (s *Session) ProcessBlock(in, out []float32, pressed bool) {
	s.mu.Lock()
	s.machine.Tick(in, out, pressed)
	vol := float32(s.volume)
	s.mu.Unlock()
	if vol != 1 {
		for i := range out {
			out[i] *= vol
		}
	}
}

// Watch returns a channel that receives looper events:
//   - EventModeChanged: the pedal moved between lifecycle states
//   - EventLayerClosed: an overdub layer was committed (Layer set)
//   - EventReset: a double tap cleared everything
//
// The channel is buffered (cap 8) and events are dropped rather than
// block the audio thread; receive promptly. Only the most recent
// Watch() channel receives events.
func (s *Session) Watch() <-chan Event {
	ch := make(chan Event, 8)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

func (s *Session) sendEvent(ev Event) {
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// SetMasterVolume sets the runtime output scalar. 1.0 is default.
func (s *Session) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

func (s *Session) MasterVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetControls maps three normalized knob positions (clamped to [0,1])
// onto the live parameters: loop sweeps MinLoopDuration..LoopDuration,
// fade sweeps a tenth of FadeDuration up to FadeDuration, and vol is
// the master volume. The configured maxima bound both sweeps, so the
// fade precondition verified at construction keeps holding.
func (s *Session) SetControls(loop, fade, vol float64) {
	loop = clamp01(loop)
	fade = clamp01(fade)
	vol = clamp01(vol)

	s.mu.Lock()
	defer s.mu.Unlock()
	minLoop := s.cfg.samples(s.cfg.MinLoopDuration)
	maxLoop := s.cfg.samples(s.cfg.LoopDuration)
	s.machine.SetLoopSamples(minLoop + int(loop*float64(maxLoop-minLoop)))

	maxFade := s.cfg.samples(s.cfg.FadeDuration)
	minFade := maxFade / 10
	if minFade < 1 {
		minFade = 1
	}
	s.machine.SetFadeSamples(minFade + int(fade*float64(maxFade-minFade)))

	s.volume = vol
}

// SetSignalThreshold adjusts the playing/silence boundary live.
func (s *Session) SetSignalThreshold(v float64) {
	if v <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.SetThreshold(v)
}

// Mode returns the pedal's current lifecycle state.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Mode(s.machine.Mode())
}

// Level returns the smoothed input level, for meters.
func (s *Session) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Level()
}

// Layers returns the committed overdub layer count.
func (s *Session) Layers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Layers()
}

// Clock returns the session clock: samples processed so far, as wall
// time at the configured rate.
func (s *Session) Clock() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Clock()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
