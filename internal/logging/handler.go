// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"sessiond/config"
)

// Output formats accepted by LOG_FORMAT.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Setup builds a logger from cfg, installs it as the slog default and returns it.
// An empty format picks pretty output when out is a terminal and JSON otherwise.
func Setup(cfg config.LogConfig, out io.Writer) *slog.Logger {
	logger := slog.New(NewHandler(cfg, out))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns the slog.Handler described by cfg.
func NewHandler(cfg config.LogConfig, out io.Writer) slog.Handler {
	level := ParseLevel(cfg.Level)

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = FormatJSON
		if isTerminal(out) {
			format = FormatPretty
		}
	}

	if format == FormatPretty {
		return tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(out),
		})
	}
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
