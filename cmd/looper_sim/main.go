// Command looper_sim runs the swell looper without any audio input
// hardware: a plucked-string synth stands in for the instrument and the
// space bar is the footswitch. Z..M pluck notes, arrows and F/G turn
// the knobs.
package main

import (
	"fmt"
	"image/color"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbegin/looper-go"
	intaudio "github.com/cbegin/looper-go/internal/audio"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW = 640
	windowH = 400

	simSampleRate = 48000
	simBlockSize  = 128

	textScale = 2
	lineH     = 14 * textScale
)

var (
	bgColor     = color.RGBA{24, 24, 32, 255}
	panelColor  = color.RGBA{48, 48, 64, 255}
	barBgColor  = color.RGBA{16, 16, 20, 255}
	levelColor  = color.RGBA{80, 200, 120, 255}
	knobColor   = color.RGBA{90, 120, 220, 255}
	borderColor = color.RGBA{128, 128, 128, 255}

	modeColors = map[looper.Mode]color.RGBA{
		looper.ModeIdle:      {128, 128, 128, 255},
		looper.ModeListening: {220, 200, 80, 255},
		looper.ModeRecording: {220, 80, 80, 255},
		looper.ModeLooping:   {80, 200, 120, 255},
		looper.ModeBypassed:  {90, 120, 220, 255},
	}
)

// pluck is a Karplus-Strong string voice: a noise burst in a delay line
// with an averaging feedback tap.
type pluck struct {
	delay []float32
	pos   int
	live  bool
}

func (p *pluck) trigger(sampleRate int, freq float64) {
	n := int(float64(sampleRate) / freq)
	if n < 2 {
		n = 2
	}
	if cap(p.delay) < n {
		p.delay = make([]float32, n)
	}
	p.delay = p.delay[:n]
	for i := range p.delay {
		p.delay[i] = (rand.Float32()*2 - 1) * 0.4
	}
	p.pos = 0
	p.live = true
}

func (p *pluck) sample() float32 {
	if !p.live {
		return 0
	}
	cur := p.delay[p.pos]
	next := p.delay[(p.pos+1)%len(p.delay)]
	p.delay[p.pos] = 0.996 * (cur + next) / 2
	p.pos = (p.pos + 1) % len(p.delay)
	return cur
}

// simSource is the audio-thread side: it mixes the synth voices into an
// input block and runs the looper over it.
type simSource struct {
	session *looper.Session
	pressed *atomic.Bool

	mu     sync.Mutex
	voices [8]pluck
	nextV  int

	in []float32
}

func newSimSource(session *looper.Session, pressed *atomic.Bool) *simSource {
	return &simSource{
		session: session,
		pressed: pressed,
		in:      make([]float32, simBlockSize),
	}
}

func (s *simSource) Pluck(freq float64) {
	s.mu.Lock()
	s.voices[s.nextV].trigger(simSampleRate, freq)
	s.nextV = (s.nextV + 1) % len(s.voices)
	s.mu.Unlock()
}

func (s *simSource) BlockSize() int { return simBlockSize }

func (s *simSource) NextBlock(dst []float32) {
	s.mu.Lock()
	for i := range s.in {
		var mix float32
		for v := range s.voices {
			mix += s.voices[v].sample()
		}
		s.in[i] = mix
	}
	s.mu.Unlock()
	s.session.ProcessBlock(s.in, dst, s.pressed.Load())
}

var noteKeys = []struct {
	key  ebiten.Key
	freq float64
}{
	{ebiten.KeyZ, 110.00},
	{ebiten.KeyX, 130.81},
	{ebiten.KeyC, 146.83},
	{ebiten.KeyV, 164.81},
	{ebiten.KeyB, 196.00},
	{ebiten.KeyN, 220.00},
	{ebiten.KeyM, 246.94},
}

type game struct {
	session *looper.Session
	source  *simSource
	audio   *intaudio.Player
	events  <-chan looper.Event
	pressed *atomic.Bool

	loopKnob, fadeKnob, volKnob float64

	logLines []string
}

func newGame() (*game, error) {
	cfg := looper.DefaultConfig()
	cfg.SampleRate = simSampleRate
	cfg.BlockSize = simBlockSize
	session, err := looper.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	pressed := &atomic.Bool{}
	source := newSimSource(session, pressed)
	player, err := intaudio.NewPlayer(simSampleRate, source)
	if err != nil {
		return nil, err
	}
	g := &game{
		session:  session,
		source:   source,
		audio:    player,
		events:   session.Watch(),
		pressed:  pressed,
		loopKnob: 1,
		fadeKnob: 1,
		volKnob:  1,
	}
	player.Play()
	return g, nil
}

func (g *game) Close() { _ = g.audio.Stop() }

func (g *game) Update() error {
	g.pressed.Store(ebiten.IsKeyPressed(ebiten.KeySpace))

	for _, nk := range noteKeys {
		if inpututil.IsKeyJustPressed(nk.key) {
			g.source.Pluck(nk.freq)
		}
	}
	g.handleKnobs()
	g.pollEvents()
	return nil
}

func (g *game) handleKnobs() {
	const step = 0.01
	before := [3]float64{g.loopKnob, g.fadeKnob, g.volKnob}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.loopKnob -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.loopKnob += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyF) {
		g.fadeKnob -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyG) {
		g.fadeKnob += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.volKnob -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.volKnob += step
	}
	g.loopKnob = clamp01(g.loopKnob)
	g.fadeKnob = clamp01(g.fadeKnob)
	g.volKnob = clamp01(g.volKnob)
	if before != [3]float64{g.loopKnob, g.fadeKnob, g.volKnob} {
		g.session.SetControls(g.loopKnob, g.fadeKnob, g.volKnob)
	}
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			g.pushLog(formatEvent(ev))
		default:
			return
		}
	}
}

func formatEvent(ev looper.Event) string {
	at := ev.At.Truncate(time.Millisecond)
	switch ev.Kind {
	case looper.EventLayerClosed:
		return fmt.Sprintf("[%8s] layer %d closed", at, ev.Layer)
	case looper.EventReset:
		return fmt.Sprintf("[%8s] reset", at)
	default:
		return fmt.Sprintf("[%8s] %s -> %s", at, ev.From, ev.To)
	}
}

func (g *game) pushLog(line string) {
	g.logLines = append(g.logLines, line)
	if len(g.logLines) > 5 {
		g.logLines = g.logLines[len(g.logLines)-5:]
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	mode := g.session.Mode()
	drawRect(screen, 20, 20, windowW-40, 40, panelColor)
	drawRect(screen, 28, 28, 24, 24, modeColors[mode])
	drawTextAt(screen, fmt.Sprintf("%s  layers: %d", mode, g.session.Layers()), 64, 26)

	// Input level meter.
	drawTextAt(screen, "level", 20, 76)
	level := g.session.Level() * 4
	drawBar(screen, 120, 80, windowW-140, 16, clamp01(level), levelColor)

	// Knobs.
	drawTextAt(screen, "loop", 20, 112)
	drawBar(screen, 120, 116, windowW-140, 16, g.loopKnob, knobColor)
	drawTextAt(screen, "fade", 20, 148)
	drawBar(screen, 120, 152, windowW-140, 16, g.fadeKnob, knobColor)
	drawTextAt(screen, "vol", 20, 184)
	drawBar(screen, 120, 188, windowW-140, 16, g.volKnob, knobColor)

	y := 228
	for _, line := range g.logLines {
		drawTextAt(screen, line, 20, y)
		y += lineH
	}

	drawTextAt(screen, "space: tap  z..m: pluck  arrows: loop/vol  f/g: fade", 20, windowH-lineH-10)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func drawRect(screen *ebiten.Image, x, y, w, h int, fill color.Color) {
	ebitenutil.DrawRect(screen, float64(x), float64(y), float64(w), float64(h), fill)
}

func drawBar(screen *ebiten.Image, x, y, w, h int, value float64, fill color.Color) {
	drawRect(screen, x, y, w, h, barBgColor)
	drawRect(screen, x, y, int(float64(w)*value), h, fill)
	ebitenutil.DrawRect(screen, float64(x), float64(y), float64(w), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(x), float64(y+h-1), float64(w), 1, borderColor)
}

var textCache = map[string]*ebiten.Image{}

func drawTextAt(screen *ebiten.Image, msg string, x, y int) {
	if msg == "" {
		return
	}
	img := textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len(msg)*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(textCache) > 1000 {
			textCache = map[string]*ebiten.Image{}
		}
		textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
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

func main() {
	g, err := newGame()
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("swell looper")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
