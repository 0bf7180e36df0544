// Package logging constructs the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logPath    = "logs/ceridwen.log"
	maxSizeMB  = 50
	maxBackups = 5
)

// New builds the default slog.Logger: JSON records rolled into logPath via
// lumberjack, or a plain text handler to stderr when CERIDWEN_LOG_PRETTY is
// set (interactive/dev use). The log level follows LOG_LEVEL ("debug",
// "info", "warn", "error"; default "info").
func New() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("CERIDWEN_LOG_PRETTY") != "" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		writer := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		}
		handler = slog.NewJSONHandler(writer, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
