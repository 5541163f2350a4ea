package loopbuf

// Ring is the default Store: one circular int16 array holding a single
// half-open loop region [loopStart, loopEnd) that may wrap past the
// physical end of the buffer.
type Ring struct {
	data       []int16
	writeIndex int
	loopStart  int
	loopEnd    int
	openStart  int // start of the region currently being recorded
}

// NewRing creates a ring sized for capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{data: make([]int16, capacity)}
}

func (r *Ring) Capacity() int { return len(r.data) }

func (r *Ring) BeginRecording(ahead *Cursor, padding int) {
	if ahead != nil {
		r.writeIndex = (ahead.pos + padding) % len(r.data)
	}
	r.openStart = r.writeIndex
}

func (r *Ring) WriteSample(s float32) {
	r.data[r.writeIndex] = encode(s)
	r.writeIndex++
	if r.writeIndex >= len(r.data) {
		r.writeIndex = 0
	}
}

func (r *Ring) WriteIndex() int { return r.writeIndex }

func (r *Ring) CloseLayer() {
	r.loopStart = r.openStart
	r.loopEnd = r.writeIndex
}

func (r *Ring) Region() (int, int) { return r.loopStart, r.loopEnd }

func (r *Ring) NewCursor() *Cursor {
	return &Cursor{pos: r.loopStart, start: r.loopStart, end: r.loopEnd}
}

func (r *Ring) ReadSample(c *Cursor) float32 {
	return decode(r.data[c.pos])
}

// Advance steps the cursor one sample, wrapping at capacity and jumping
// back to the region start at the region end. A region with start > end
// crosses the physical end of the buffer; for those the jump is allowed
// only once the cursor has itself wrapped, so a cursor still inside the
// pre-wrap tail never jumps prematurely.
func (r *Ring) Advance(c *Cursor) {
	c.pos++
	if c.pos >= len(r.data) {
		c.pos = 0
		c.wrapped = true
	}
	if c.pos != c.end {
		return
	}
	if c.start <= c.end || c.wrapped {
		c.pos = c.start
		c.wrapped = false
	}
}

func (r *Ring) Reset() {
	for i := range r.data {
		r.data[i] = 0
	}
	r.writeIndex = 0
	r.loopStart = 0
	r.loopEnd = 0
	r.openStart = 0
}
