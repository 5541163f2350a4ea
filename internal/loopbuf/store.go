// Package loopbuf provides the fixed-capacity sample stores behind the
// looper: a single ring with region markers and wrap-aware cursors, and a
// ping-pong pair of fixed buffers. Both satisfy the same Store contract
// and the same invariants; the pedal picks one at configuration time.
package loopbuf

// Cursor is a playback position over a Store. It snapshots the loop
// region at creation so a cursor fading out the old region keeps
// wrapping correctly while a new region is being recorded over the same
// storage.
type Cursor struct {
	pos        int
	start, end int
	wrapped    bool // physically wrapped past capacity since the last region jump
	buf        int  // backing buffer index, used by the ping-pong store
}

// Pos returns the cursor's current index into the store.
func (c *Cursor) Pos() int { return c.pos }

// Store is a fixed-capacity circular sample store with one write cursor
// and any number of independent read cursors. Writing never blocks,
// never allocates, and always wraps; reading a region that was never
// written yields silence. Region markers move only in BeginRecording,
// CloseLayer and Reset.
type Store interface {
	Capacity() int

	// BeginRecording opens a fresh region. When ahead is non-nil the
	// write cursor is placed padding samples in front of it, so material
	// the cursor is still playing can finish fading out before being
	// overwritten.
	BeginRecording(ahead *Cursor, padding int)
	WriteSample(s float32)
	WriteIndex() int

	// CloseLayer seals the open region: it becomes the loop.
	CloseLayer()
	Region() (start, end int)

	// NewCursor returns a cursor at the start of the current region.
	NewCursor() *Cursor
	ReadSample(c *Cursor) float32
	Advance(c *Cursor)

	// Reset zeroes the contents and returns every marker to zero.
	Reset()
}

// Samples are held as signed 16-bit, the transport's native width.

func encode(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	v := s * 32767
	if v >= 0 {
		return int16(v + 0.5)
	}
	return int16(v - 0.5)
}

func decode(v int16) float32 {
	return float32(v) / 32767
}
