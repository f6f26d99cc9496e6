// Package logging configures the process-wide slog logger from the
// --log-level and --log-format flags.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
)

// Level is the shared level variable; changing it affects every handler
// built by New.
var Level = &slog.LevelVar{}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "err", "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (expected debug, info, warn, error)", name)
	}
}

// New builds a logger writing to w in format: json, text or terminal.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	Level.Set(lvl)

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey {
					return slog.String(a.Key, strings.ToLower(a.Value.String()))
				}
				return a
			},
		})
	case "terminal":
		h = newTerminalHandler(w)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json, text, terminal)", format)
	}
	return slog.New(h), nil
}

func newTerminalHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		NoColor:    runtime.GOOS == "windows",
		AddSource:  true,
		Level:      Level,
		TimeFormat: "15:04:05.000",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey && Level.Level() > slog.LevelDebug {
				return slog.Attr{}
			}
			return a
		},
	})
}

// Setup builds a logger and installs it as the slog default.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	logger, err := New(w, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
