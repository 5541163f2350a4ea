// Command looper runs the swell looper against the default audio
// device: mono input in, input plus loop playback out. The footswitch
// is the space bar (or a MIDI pedal via -midi); one tap arms, a double
// tap clears.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cbegin/looper-go"
	pa "github.com/gordonklaus/portaudio"
	"golang.org/x/term"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "sample rate")
		block      = flag.Int("block", 128, "samples per audio block")
		loop       = flag.Duration("loop", 4*time.Second, "per-layer loop length (loop knob maximum)")
		minLoop    = flag.Duration("min-loop", 500*time.Millisecond, "loop knob minimum")
		fade       = flag.Duration("fade", 1500*time.Millisecond, "swell/crossfade length")
		silence    = flag.Duration("silence", 300*time.Millisecond, "silence timeout that closes a recording")
		threshold  = flag.Float64("threshold", 0.02, "envelope level treated as playing")
		layers     = flag.Int("layers", 4, "max overdub layers")
		bufMode    = flag.String("mode", "ring", "loop storage: ring|pingpong")
		wavPath    = flag.String("wav", "", "capture the output to a WAV file on exit")
		midiPort   = flag.String("midi", "", "MIDI input port substring (CC64 = footswitch)")
		trace      = flag.Bool("trace", false, "log state transitions to stderr")
	)
	flag.Parse()

	mode, err := parseBufferMode(*bufMode)
	if err != nil {
		log.Fatal(err)
	}
	cfg := looper.DefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.BlockSize = *block
	cfg.LoopDuration = *loop
	cfg.MinLoopDuration = *minLoop
	cfg.FadeDuration = *fade
	cfg.SilenceTimeout = *silence
	cfg.SignalThreshold = *threshold
	cfg.MaxLayers = *layers
	cfg.BufferMode = mode

	var opts []looper.SessionOption
	if *trace {
		opts = append(opts, looper.WithTrace(os.Stderr))
	}
	session, err := looper.NewSession(cfg, opts...)
	if err != nil {
		log.Fatal(err)
	}

	sw := &footswitch{}
	knobs := newKnobs(session)

	if *midiPort != "" {
		stop, err := startMIDI(*midiPort, sw, knobs)
		if err != nil {
			log.Fatal(err)
		}
		defer stop()
	}

	if err := pa.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer pa.Terminate()

	var (
		captureMu sync.Mutex
		capture   []float32
	)
	stream, err := pa.OpenDefaultStream(1, 1, float64(cfg.SampleRate), cfg.BlockSize,
		func(in, out []float32) {
			session.ProcessBlock(in, out, sw.Down())
			if *wavPath != "" {
				captureMu.Lock()
				capture = append(capture, out...)
				captureMu.Unlock()
			}
		})
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		log.Fatal(err)
	}
	defer stream.Stop()

	go printEvents(session.Watch())

	fmt.Println("space: tap (double tap clears)  -/= loop  ,/. fade  [/] volume  q: quit")
	if err := keyboardLoop(sw, knobs); err != nil {
		log.Fatal(err)
	}

	if *wavPath != "" {
		captureMu.Lock()
		wav := looper.EncodeWAVInt16LE(capture, cfg.SampleRate, 1)
		captureMu.Unlock()
		if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s\n", *wavPath)
	}
}

func parseBufferMode(name string) (looper.BufferMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ring":
		return looper.BufferRing, nil
	case "pingpong":
		return looper.BufferPingPong, nil
	default:
		return "", fmt.Errorf("invalid -mode %q (expected ring|pingpong)", name)
	}
}

func printEvents(ch <-chan looper.Event) {
	for ev := range ch {
		switch ev.Kind {
		case looper.EventModeChanged:
			fmt.Printf("\r[%8s] %s -> %s\n", ev.At.Truncate(time.Millisecond), ev.From, ev.To)
		case looper.EventLayerClosed:
			fmt.Printf("\r[%8s] layer %d closed\n", ev.At.Truncate(time.Millisecond), ev.Layer)
		case looper.EventReset:
			fmt.Printf("\r[%8s] reset\n", ev.At.Truncate(time.Millisecond))
		}
	}
}

// footswitch merges the two control sources: a hardware pedal reports
// press and release levels, while a keyboard only delivers keypress
// events, so each key tap latches the switch down briefly (longer than
// the debounce, shorter than the tap window).
type footswitch struct {
	held       atomic.Bool
	latchUntil atomic.Int64 // unix nanos
}

const keyLatch = 60 * time.Millisecond

func (f *footswitch) Tap() {
	f.latchUntil.Store(time.Now().Add(keyLatch).UnixNano())
}

func (f *footswitch) Set(down bool) {
	f.held.Store(down)
}

func (f *footswitch) Down() bool {
	return f.held.Load() || time.Now().UnixNano() < f.latchUntil.Load()
}

// knobs holds the three normalized control positions and pushes every
// change through SetControls, whichever source moved.
type knobs struct {
	mu      sync.Mutex
	session *looper.Session

	loop, fade, vol float64
}

func newKnobs(s *looper.Session) *knobs {
	k := &knobs{session: s, loop: 1, fade: 1, vol: 1}
	return k
}

func (k *knobs) Nudge(dLoop, dFade, dVol float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.loop = clamp01(k.loop + dLoop)
	k.fade = clamp01(k.fade + dFade)
	k.vol = clamp01(k.vol + dVol)
	k.session.SetControls(k.loop, k.fade, k.vol)
}

func (k *knobs) Set(loop, fade, vol float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.loop, k.fade, k.vol = loop, fade, vol
	k.session.SetControls(loop, fade, vol)
}

func (k *knobs) Get() (loop, fade, vol float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.loop, k.fade, k.vol
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

// keyboardLoop puts stdin in raw mode and polls it non-blocking until
// q or Ctrl-C.
func keyboardLoop(sw *footswitch, k *knobs) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, oldState)
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("nonblocking stdin: %w", err)
	}
	defer syscall.SetNonblock(fd, false)

	const step = 0.05
	buf := make([]byte, 1)
	for {
		n, err := syscall.Read(fd, buf)
		if n > 0 {
			switch buf[0] {
			case ' ':
				sw.Tap()
			case '-':
				k.Nudge(-step, 0, 0)
			case '=':
				k.Nudge(step, 0, 0)
			case ',':
				k.Nudge(0, -step, 0)
			case '.':
				k.Nudge(0, step, 0)
			case '[':
				k.Nudge(0, 0, -step)
			case ']':
				k.Nudge(0, 0, step)
			case 'q', 0x03:
				return nil
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
	}
}
