// Package trace emits the looper's diagnostic lines: one human-readable
// line per state transition, purely observational.
package trace

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger writes timestamped category lines to a writer. A nil Logger is
// valid and silent, so the core can log unconditionally.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Logf writes one line: [15:04:05.000] category   message
func (l *Logger) Logf(category, format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.w, "[%s] %-10s %s\n", ts, category, fmt.Sprintf(format, args...))
}
