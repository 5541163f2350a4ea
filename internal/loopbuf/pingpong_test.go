package loopbuf

import "testing"

func TestPingPongLayerSwap(t *testing.T) {
	p := NewPingPong(64)
	p.BeginRecording(nil, 0)
	for i := 0; i < 20; i++ {
		p.WriteSample(val(i))
	}
	p.CloseLayer()
	if s, e := p.Region(); s != 0 || e != 20 {
		t.Fatalf("region = [%d,%d), want [0,20)", s, e)
	}

	// The committed loop stays readable while the next layer records
	// into the other buffer.
	c := p.NewCursor()
	p.BeginRecording(nil, 0)
	for i := 0; i < 20; i++ {
		got := p.ReadSample(c)
		p.Advance(c)
		if got != val(i) {
			t.Fatalf("read %d = %f, want %f", i, got, val(i))
		}
		p.WriteSample(val(100 + i))
	}
	if c.Pos() != 0 {
		t.Errorf("cursor should have wrapped to 0, got %d", c.Pos())
	}

	p.CloseLayer()
	c2 := p.NewCursor()
	if got := p.ReadSample(c2); got != val(100) {
		t.Errorf("after swap read = %f, want %f", got, val(100))
	}
	// The old cursor still reads the buffer it was created over.
	if got := p.ReadSample(c); got != val(0) {
		t.Errorf("stale cursor read = %f, want %f", got, val(0))
	}
}

func TestPingPongWriteWrapsAtCapacity(t *testing.T) {
	p := NewPingPong(16)
	p.BeginRecording(nil, 0)
	for i := 0; i < 20; i++ {
		p.WriteSample(val(i))
	}
	if p.WriteIndex() != 4 {
		t.Errorf("writeIndex = %d, want 4", p.WriteIndex())
	}
	p.CloseLayer()
	if _, e := p.Region(); e != 16 {
		t.Errorf("wrapped layer length = %d, want full capacity 16", e)
	}
}

func TestPingPongEmptyReadsSilence(t *testing.T) {
	p := NewPingPong(16)
	c := p.NewCursor()
	for i := 0; i < 5; i++ {
		if s := p.ReadSample(c); s != 0 {
			t.Fatalf("empty read = %f, want 0", s)
		}
		p.Advance(c)
	}
	if c.Pos() != 0 {
		t.Errorf("empty cursor should not move, pos = %d", c.Pos())
	}
}

func TestPingPongReset(t *testing.T) {
	p := NewPingPong(16)
	p.BeginRecording(nil, 0)
	for i := 0; i < 10; i++ {
		p.WriteSample(0.25)
	}
	p.CloseLayer()
	p.Reset()
	if p.WriteIndex() != 0 {
		t.Errorf("writeIndex = %d, want 0", p.WriteIndex())
	}
	if s, e := p.Region(); s != 0 || e != 0 {
		t.Errorf("region = [%d,%d), want [0,0)", s, e)
	}
}
