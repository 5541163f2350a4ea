package looper

import (
	"testing"
	"time"
)

// testConfig scales the looper down to 1kHz so whole performances fit
// in a few thousand samples. One block is 10ms.
func testConfig() Config {
	return Config{
		SampleRate:      1000,
		BlockSize:       10,
		LoopDuration:    2 * time.Second,
		MinLoopDuration: 100 * time.Millisecond,
		FadeDuration:    50 * time.Millisecond,
		SilenceTimeout:  30 * time.Millisecond,
		SignalThreshold: 0.05,
		OnsetRatio:      2.5,
		MaxLayers:       4,
		DebounceDelay:   25 * time.Millisecond,
		TapWindow:       100 * time.Millisecond,
		BufferMode:      BufferRing,
	}
}

func TestSessionMasterVolumeRuntimeAPI(t *testing.T) {
	s, err := NewSession(testConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if got := s.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	s.SetMasterVolume(0.35)
	if got := s.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	s.SetMasterVolume(-2)
	if got := s.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero block size", func(c *Config) { c.BlockSize = 0 }},
		{"loop below minimum", func(c *Config) { c.LoopDuration = c.MinLoopDuration / 2 }},
		{"zero fade", func(c *Config) { c.FadeDuration = 0 }},
		{"zero silence timeout", func(c *Config) { c.SilenceTimeout = 0 }},
		{"zero threshold", func(c *Config) { c.SignalThreshold = 0 }},
		{"onset ratio at unity", func(c *Config) { c.OnsetRatio = 1 }},
		{"zero layers", func(c *Config) { c.MaxLayers = 0 }},
		{"window inside debounce", func(c *Config) { c.TapWindow = c.DebounceDelay }},
		{"fade past layer budget", func(c *Config) {
			c.MaxLayers = 2
			c.MinLoopDuration = 100 * time.Millisecond
			c.FadeDuration = 300 * time.Millisecond
		}},
		{"bogus buffer mode", func(c *Config) { c.BufferMode = "tape" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("want validation error, got nil")
			}
		})
	}
}

// performance scripts a whole take: arm with a tap, play a burst, let
// silence close the loop.
func performance(block int, dst []float32) {
	if block < 30 || block >= 60 {
		return
	}
	for i := range dst {
		if i%2 == 0 {
			dst[i] = 0.5
		} else {
			dst[i] = -0.5
		}
	}
}

func performancePressed(block int) bool {
	return block >= 5 && block < 9
}

func TestSessionRecordsAndLoops(t *testing.T) {
	s, err := NewSession(testConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	out := RenderBlocks(s, 250, performance, performancePressed)

	if got := s.Mode(); got != ModeLooping {
		t.Fatalf("mode = %v, want looping", got)
	}
	if got := s.Layers(); got != 1 {
		t.Errorf("layers = %d, want 1", got)
	}
	// The tail is pure loop playback and must be audible.
	var peak float32
	for _, v := range out[len(out)-500:] {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.01 {
		t.Error("loop playback tail is silent")
	}
	if got := s.Clock(); got != 2500*time.Millisecond {
		t.Errorf("clock = %v, want 2.5s", got)
	}
}

func TestSessionWatchDeliversEvents(t *testing.T) {
	s, err := NewSession(testConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ch := s.Watch()
	RenderBlocks(s, 250, performance, performancePressed)

	var kinds []int
	var sawLooping bool
drain:
	for {
		select {
		case ev := <-ch:
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventModeChanged && ev.To == ModeLooping {
				sawLooping = true
			}
		default:
			break drain
		}
	}
	if len(kinds) == 0 {
		t.Fatal("no events delivered")
	}
	if !sawLooping {
		t.Error("no mode change to looping observed")
	}
	layerEvents := 0
	for _, k := range kinds {
		if k == EventLayerClosed {
			layerEvents++
		}
	}
	if layerEvents != 1 {
		t.Errorf("layer events = %d, want 1", layerEvents)
	}
}

func TestSessionPingPongMode(t *testing.T) {
	cfg := testConfig()
	cfg.BufferMode = BufferPingPong
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	RenderBlocks(s, 250, performance, performancePressed)
	if got := s.Mode(); got != ModeLooping {
		t.Fatalf("mode = %v, want looping", got)
	}
}

func TestSetControlsClamps(t *testing.T) {
	s, err := NewSession(testConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.SetControls(2, -3, 7)
	if got := s.MasterVolume(); got != 1 {
		t.Errorf("volume = %v, want clamp to 1", got)
	}
	s.SetControls(0.5, 0.5, 0)
	if got := s.MasterVolume(); got != 0 {
		t.Errorf("volume = %v, want 0", got)
	}
}
