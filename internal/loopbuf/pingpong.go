package loopbuf

// PingPong is the two-buffer Store variant: two independent fixed
// buffers alternate roles, one holding the playing loop while the other
// receives the next layer. Regions never wrap here (they always start at
// zero), but the per-buffer invariants match the ring's.
type PingPong struct {
	buf     [2][]int16
	length  [2]int
	active  int // buffer holding the committed loop
	w       int // write position in the standby buffer
	wrapped bool
}

// NewPingPong creates a pair of buffers, each capacity samples long.
func NewPingPong(capacity int) *PingPong {
	return &PingPong{
		buf: [2][]int16{make([]int16, capacity), make([]int16, capacity)},
	}
}

func (p *PingPong) Capacity() int { return len(p.buf[0]) }

// BeginRecording restarts the standby buffer. The buffers are physically
// separate, so no write-ahead padding is needed; ahead and padding are
// accepted for interface parity and ignored.
func (p *PingPong) BeginRecording(ahead *Cursor, padding int) {
	p.w = 0
	p.wrapped = false
}

func (p *PingPong) WriteSample(s float32) {
	standby := 1 - p.active
	p.buf[standby][p.w] = encode(s)
	p.w++
	if p.w >= len(p.buf[standby]) {
		p.w = 0
		p.wrapped = true
	}
}

func (p *PingPong) WriteIndex() int { return p.w }

func (p *PingPong) CloseLayer() {
	standby := 1 - p.active
	if p.wrapped {
		p.length[standby] = len(p.buf[standby])
	} else {
		p.length[standby] = p.w
	}
	p.active = standby
	p.w = 0
	p.wrapped = false
}

func (p *PingPong) Region() (int, int) { return 0, p.length[p.active] }

func (p *PingPong) NewCursor() *Cursor {
	return &Cursor{end: p.length[p.active], buf: p.active}
}

func (p *PingPong) ReadSample(c *Cursor) float32 {
	if c.end == 0 {
		return 0
	}
	return decode(p.buf[c.buf][c.pos])
}

func (p *PingPong) Advance(c *Cursor) {
	if c.end == 0 {
		return
	}
	c.pos++
	if c.pos >= len(p.buf[c.buf]) {
		c.pos = 0
	}
	if c.pos == c.end {
		c.pos = c.start
	}
}

func (p *PingPong) Reset() {
	for b := range p.buf {
		for i := range p.buf[b] {
			p.buf[b][i] = 0
		}
		p.length[b] = 0
	}
	p.active = 0
	p.w = 0
	p.wrapped = false
}
