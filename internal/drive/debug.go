package drive

import (
	"io"

	"github.com/banshee-data/swervedrive/internal/monitoring"
)

var (
	opsLogger   *monitoring.Stream
	diagLogger  *monitoring.Stream
	traceLogger *monitoring.Stream
)

// SetLogWriters configures the three logging streams for the drive package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = monitoring.NewStream("[drive] ", ops)
	diagLogger = monitoring.NewStream("[drive] ", diag)
	traceLogger = monitoring.NewStream("[drive] ", trace)
}

// opsf logs to the ops stream (actionable warnings: stale samples, dispatch failures).
func opsf(format string, args ...interface{}) { opsLogger.Printf(format, args...) }

// diagf logs to the diag stream (resets, saturation, loop lifecycle).
func diagf(format string, args ...interface{}) { diagLogger.Printf(format, args...) }

// tracef logs to the trace stream (per-cycle pose and targets).
func tracef(format string, args ...interface{}) { traceLogger.Printf(format, args...) }
