package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*settings)

type settings struct {
	level   slog.Level
	format  string
	source  bool
	writers []io.Writer
}

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithFormat selects the handler: "pretty" (charmbracelet/log), "json" or "text".
func WithFormat(format string) Option {
	return func(s *settings) {
		s.format = format
	}
}

// WithWriters sets the output writers. Defaults to os.Stdout.
func WithWriters(w ...io.Writer) Option {
	return func(s *settings) {
		s.writers = w
	}
}

// WithSource adds file:line to every record.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}
