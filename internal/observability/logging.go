package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the root slog logger from the configured level and format.
// Level "silent" discards everything.
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

// NewChannelLogger builds a named diagnostic channel for one processor, with
// its own verbosity independent of the root logger.
func NewChannelLogger(component, level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format).With("component", component)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, silent := parseLevel(level)
	if silent {
		w = io.Discard
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLevel maps a configured level name to a slog level. Unknown names fall
// back to info. The second return is true for "silent" and "none".
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, false
	case "warn":
		return slog.LevelWarn, false
	case "error":
		return slog.LevelError, false
	case "silent", "none":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
