// Package logging is a thin leveled wrapper over the standard library's
// log.Logger. It exists so the HTTP error-normalization middleware (see
// internal/httpapi) can distinguish warn-level client errors from
// error-level server errors without pulling in a structured logging
// library the teacher never used.
package logging

import (
	"log"
	"os"
)

// Logger writes warn/error/info lines through a single underlying
// log.Logger, prefixing the level so it reads the same as the teacher's
// bare log.Printf calls but stays greppable by severity.
type Logger struct {
	out *log.Logger
}

// New returns a Logger writing to stderr with the standard log flags.
func New() *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) Info(format string, args ...any) {
	l.out.Printf("INFO "+format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.out.Printf("WARN "+format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.out.Printf("ERROR "+format, args...)
}
