// Package logx is a small leveled logger gated on the matcher's debug
// verbosity knob (spec §6). It wraps the standard library's log package
// rather than pulling in a structured-logging dependency — nothing in the
// corpus this module was built from uses one, and threshold-gating a
// handful of printf-style calls doesn't warrant the import (see
// DESIGN.md).
package logx

import (
	"io"
	"log"
)

// Logger prints messages at or below a configured verbosity level.
type Logger struct {
	level int
	std   *log.Logger
}

// New builds a Logger writing to w, active up to the given debug level
// (spec §6: 0 silent, 1 per-section summaries, 3 relocation/search trace).
func New(w io.Writer, level int) *Logger {
	return &Logger{level: level, std: log.New(w, "", log.LstdFlags)}
}

// Debugf logs at level 1 (per-section mismatch summaries).
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.level < 1 {
		return
	}
	l.std.Printf(format, args...)
}

// Tracef logs at level 3 (relocation detail and search progress).
func (l *Logger) Tracef(format string, args ...any) {
	if l == nil || l.level < 3 {
		return
	}
	l.std.Printf(format, args...)
}

// Level reports the configured verbosity threshold.
func (l *Logger) Level() int {
	if l == nil {
		return 0
	}
	return l.level
}
