// Package logging builds the process logger from the -v count.
package logging

import (
	"io"
	"log/slog"
)

// LevelCritical sits above error; verbosity 0 only shows it.
const LevelCritical = slog.Level(12)

// Level maps a verbosity count to a level: 0 critical, 1 error, 2 warn,
// 3 info, 4 or more debug.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return LevelCritical
	case verbosity == 1:
		return slog.LevelError
	case verbosity == 2:
		return slog.LevelWarn
	case verbosity == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New returns a text logger writing to w and makes it the default.
func New(w io.Writer, verbosity int) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level(verbosity),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}))
	slog.SetDefault(logger)
	return logger
}
