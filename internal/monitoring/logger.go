// Package monitoring holds the process-level logger, the per-package log
// streams, and the counters the control loop exposes for diagnostics.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Stream is one named log stream. A nil Stream discards everything, so
// packages can leave a stream unconfigured without guarding each call.
type Stream struct {
	l *log.Logger
}

// NewStream returns a stream writing to w with prefix, or nil when w is nil.
func NewStream(prefix string, w io.Writer) *Stream {
	if w == nil {
		return nil
	}
	return &Stream{l: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)}
}

// Printf writes to the stream if it is configured.
func (s *Stream) Printf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.l.Printf(format, args...)
}
