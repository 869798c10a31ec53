// Package logger builds the *slog.Logger used by the server and the CLI.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Formats accepted by WithFormat.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

// New returns a logger configured by opts. Unknown formats fall back to text.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo, format: FormatText}
	for _, opt := range opts {
		opt(s)
	}

	var w io.Writer = os.Stdout
	switch len(s.writers) {
	case 0:
	case 1:
		w = s.writers[0]
	default:
		w = io.MultiWriter(s.writers...)
	}

	var h slog.Handler
	switch s.format {
	case FormatPretty:
		h = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			ReportCaller:    s.source,
		})
	case FormatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	}
	return slog.New(h)
}

// Nop returns a logger that drops everything. Used in tests.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
