package tap

import "time"

// Kind distinguishes the two footswitch gestures.
type Kind int

const (
	Single Kind = iota
	Double
)

func (k Kind) String() string {
	if k == Double {
		return "double"
	}
	return "single"
}

// Event is a resolved tap gesture. Events are ephemeral: the state
// machine consumes at most one per control tick.
type Event struct {
	Kind Kind
	At   time.Duration // session clock at resolution
}

// Classifier turns raw momentary-switch readings into debounced single
// and double tap events. A raw level change is accepted only after it
// has been stable for the debounce delay; accepted presses within the
// tap window of each other accumulate into a double.
type Classifier struct {
	debounce time.Duration
	window   time.Duration

	lastRaw    bool
	debounced  bool
	lastChange time.Duration
	haveRaw    bool

	tapCount int
	lastEdge time.Duration
}

// New creates a classifier. debounce is the stability requirement for a
// raw change (~25ms); window is the double-tap window (~400ms).
func New(debounce, window time.Duration) *Classifier {
	return &Classifier{debounce: debounce, window: window}
}

// Sample consumes one switch reading (true = pressed) at the given
// session clock and returns a resolved event, if any. At most one event
// is returned per call.
func (c *Classifier) Sample(pressed bool, now time.Duration) (Event, bool) {
	if !c.haveRaw {
		// The switch boots released (pull-up, open = high). A press
		// already down at the first sample is a real edge: it is
		// accepted once it has been stable for the debounce delay.
		c.lastRaw = pressed
		c.debounced = false
		c.lastChange = now
		c.haveRaw = true
		return Event{}, false
	}

	if pressed != c.lastRaw {
		c.lastRaw = pressed
		c.lastChange = now
	}

	if pressed != c.debounced && now-c.lastChange >= c.debounce {
		c.debounced = pressed
		if c.debounced {
			// Accepted falling edge (switch closed).
			if c.tapCount > 0 && now-c.lastEdge <= c.window {
				c.tapCount++
			} else {
				c.tapCount = 1
			}
			c.lastEdge = now
			if c.tapCount >= 2 {
				// A double resolves immediately on the second
				// edge, without waiting out the window.
				c.tapCount = 0
				return Event{Kind: Double, At: now}, true
			}
			return Event{}, false
		}
	}

	if c.tapCount == 1 && now-c.lastEdge > c.window {
		c.tapCount = 0
		return Event{Kind: Single, At: now}, true
	}
	return Event{}, false
}

// Reset drops any pending tap sequence.
func (c *Classifier) Reset() {
	c.tapCount = 0
	c.haveRaw = false
}
