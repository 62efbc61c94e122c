// Package elog provides the structured logging channel silent mode
// (spec.md §4.1, §4.4, §9) writes to instead of raising: when a compiled
// program runs with opts.ejsOff set, runtime check failures are logged
// here and execution continues rather than surfacing as a thrown
// exception. Grounded on the zerolog usage pattern in
// deepnoodle-ai-risor, which logs interpreter-internal events to a
// structured sink independent of the language's own stdout.
package elog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the two event kinds ElementaryJS
// needs: a silent-mode check violation, and a "potential bug in
// ElementaryJS" event the scheduler emits on an unrecovered internal
// panic (spec.md §7).
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to w (os.Stderr in the default CLI, or a
// buffer in tests that want to assert on emitted events).
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Default is a process-wide logger for call sites that don't thread one
// through explicitly (the runtime check library's OnViolation hook).
var Default = New(os.Stderr)

func (l *Logger) Violation(line int, message string) {
	l.zl.Warn().Int("line", line).Str("message", message).Msg("runtime check violation (silent mode)")
}

func (l *Logger) Bug(message string, err error) {
	l.zl.Error().Err(err).Msg("potential bug in ElementaryJS: " + message)
}

func (l *Logger) Info(message string) {
	l.zl.Info().Msg(message)
}
