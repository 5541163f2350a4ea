// Package audio bridges a block-oriented mono source to the ebiten
// audio backend, which pulls interleaved stereo float32.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// BlockSource produces mono audio one fixed-size block at a time.
type BlockSource interface {
	BlockSize() int
	NextBlock(dst []float32)
}

// StreamReader adapts a BlockSource to the io.Reader the backend pulls
// from. Read sizes rarely align with the source's block size, so the
// reader carries the unconsumed remainder of the last block between
// calls.
type StreamReader struct {
	mu     sync.Mutex
	source BlockSource
	block  []float32
	pos    int
}

func NewStreamReader(source BlockSource) *StreamReader {
	n := source.BlockSize()
	return &StreamReader{source: source, block: make([]float32, n), pos: n}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 8 bytes per frame: two float32 channels.
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	for f := 0; f < frames; f++ {
		if r.pos >= len(r.block) {
			r.source.NextBlock(r.block)
			r.pos = 0
		}
		u := math.Float32bits(r.block[r.pos])
		r.pos++
		binary.LittleEndian.PutUint32(p[f*8:], u)
		binary.LittleEndian.PutUint32(p[f*8+4:], u)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Player owns one backend player over a StreamReader.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide backend context; the
// backend allows exactly one, created at a fixed rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source BlockSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
