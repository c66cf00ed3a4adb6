// Package logger wraps zerolog for lockmark.
//
// Diagnostic records go to stderr so they never mix with decrypted
// content written to stdout.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a console logger writing to w at the given level.
// A nil writer means os.Stderr.
func New(level zerolog.Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	l := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", "lockmark").
		Logger()

	return &Logger{l}
}

// ParseLevel parses a level name, accepting "" as warn
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.WarnLevel, nil
	}
	return zerolog.ParseLevel(s)
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}
