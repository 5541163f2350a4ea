package looper

import (
	"encoding/binary"
	"testing"
)

func TestRenderBlocksDriveTheSession(t *testing.T) {
	s, err := NewSession(testConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	out := RenderBlocks(s, 20, nil, nil)
	if len(out) != 20*s.Config().BlockSize {
		t.Fatalf("rendered %d samples, want %d", len(out), 20*s.Config().BlockSize)
	}
	// Idle with no input passes silence through.
	for i, v := range out {
		if v != 0 {
			t.Fatalf("idle output[%d] = %f, want 0", i, v)
		}
	}
}

func TestEncodeWAVInt16LE(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 2, -2}
	wav := EncodeWAVInt16LE(samples, 48000, 1)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(samples)*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if f := binary.LittleEndian.Uint16(wav[20:]); f != 1 {
		t.Errorf("format = %d, want 1 (PCM)", f)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if sr := binary.LittleEndian.Uint32(wav[24:]); sr != 48000 {
		t.Errorf("sample rate = %d, want 48000", sr)
	}
	if sz := binary.LittleEndian.Uint32(wav[40:]); sz != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", sz, len(samples)*2)
	}

	read := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(wav[44+i*2:]))
	}
	if v := read(3); v != 32767 {
		t.Errorf("full scale = %d, want 32767", v)
	}
	if v := read(5); v != 32767 {
		t.Errorf("over full scale = %d, want clamped 32767", v)
	}
	if v := read(6); v != -32767 {
		t.Errorf("under full scale = %d, want clamped -32767", v)
	}
}
