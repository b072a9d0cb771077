// Package notify holds the one process-wide logging sink the rest of the
// module is allowed to reach for directly. Everything else (chunk
// corruption, table disagreements, segment rollover) returns a typed error
// or is recorded in the error registries instead of logging on its own;
// notify exists so a Handle can still report what it decided not to treat
// as fatal.
package notify

import (
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var sink atomic.Pointer[log.Logger]

func init() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "goewf",
	})
	l.SetLevel(log.WarnLevel)
	sink.Store(l)
}

// Set replaces the process-wide logger, letting a caller route goewf's
// diagnostic output (e.g. to a file, or to a structured sink shared with
// the rest of its own program) instead of the stderr default.
func Set(l *log.Logger) {
	sink.Store(l)
}

// Logger returns the current process-wide logger.
func Logger() *log.Logger {
	return sink.Load()
}

// Warnf logs a recoverable condition: a CRC mismatch that was recorded
// rather than returned, a table/table2 disagreement resolved by picking
// one side, a section chain oddity that didn't stop the walk.
func Warnf(format string, args ...any) {
	sink.Load().Warnf(format, args...)
}

// Errorf logs a condition the caller is about to surface as an error too,
// for cases worth a breadcrumb in the log even though the caller also
// gets a typed error return.
func Errorf(format string, args ...any) {
	sink.Load().Errorf(format, args...)
}

// Infof logs routine lifecycle events: segment rollover, finalize.
func Infof(format string, args ...any) {
	sink.Load().Infof(format, args...)
}
