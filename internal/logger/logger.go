// Package logger builds the leveled console loggers used by commands and
// pipeline components.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures a console logger.
type Options struct {
	Debug  bool
	Writer io.Writer // defaults to os.Stderr
}

// New creates a console logger with timestamps.
func New(opts Options) *log.Logger {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns a child logger prefixed with the component name.
// A nil parent yields a discarding logger.
func Component(parent *log.Logger, name string) *log.Logger {
	if parent == nil {
		return Discard()
	}
	return parent.WithPrefix(name)
}
