package logger

import (
	"log/slog"
	"os"
	"strings"
)

// L is the global logger instance. It defaults to an info-level text logger
// so packages can log before Init runs (e.g. during config loading).
var L = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Init initializes the global logger. Call once at startup, after loading
// config.
func Init(logLevel string) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	L = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(L)
}
