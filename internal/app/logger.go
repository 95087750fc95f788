package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the app's own logger without touching slog.Default, so
// several apps (and tests) can log to different writers. Unknown levels fall
// back to info; debug logging also records the call site.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var h slog.Handler = slog.NewTextHandler(outW, opts)
	if strings.EqualFold(formatStr, "json") {
		h = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(h).With("service", "helpme")
}
