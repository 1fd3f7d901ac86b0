package logger

import (
	"io"
	"log/slog"
	"os"

	"wego-server/internal/shared/config"
)

func Init() {
	if config.GlobalConfig == nil {
		panic("config must be initialized before logger")
	}

	logConfig := config.GlobalConfig.Logging
	slog.SetDefault(New(logConfig, os.Stdout))

	logger := slog.With("component", "logger")
	logger.Debug("Logger initialized",
		"level", logConfig.Level,
		"json_format", useJSON(logConfig),
		"environment", config.GlobalConfig.Server.Environment,
	)
}

// New builds a logger for logConfig writing to w.
func New(logConfig config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(logConfig.Level)}

	var handler slog.Handler
	if useJSON(logConfig) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func useJSON(logConfig config.LoggingConfig) bool {
	return logConfig.JSONFormat || logConfig.Format == "json"
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
