package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format, development uses human-readable text.
//
// Diagnostics go to stderr so they never interleave with the progress
// lines the uploader writes to stdout.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(os.Stderr, env)
}

// NewLoggerTo is NewLogger with an explicit sink, for tests.
func NewLoggerTo(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
