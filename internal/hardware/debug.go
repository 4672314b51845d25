package hardware

import (
	"io"

	"github.com/banshee-data/swervedrive/internal/monitoring"
)

var (
	opsLogger   *monitoring.Stream
	diagLogger  *monitoring.Stream
	traceLogger *monitoring.Stream
)

// SetLogWriters configures the logging streams for the hardware package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = monitoring.NewStream("[hardware] ", ops)
	diagLogger = monitoring.NewStream("[hardware] ", diag)
	traceLogger = monitoring.NewStream("[hardware] ", trace)
}

// opsf logs malformed lines and failed writes.
func opsf(format string, args ...interface{}) { opsLogger.Printf(format, args...) }

// diagf logs bus lifecycle and gyro resets.
func diagf(format string, args ...interface{}) { diagLogger.Printf(format, args...) }

// tracef logs every line received.
func tracef(format string, args ...interface{}) { traceLogger.Printf(format, args...) }
