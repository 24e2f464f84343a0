package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Configure installs the process-wide default logger: tint output for dev
// environments, JSON for everything else.
func Configure(levelStr string, env string) {
	slog.SetDefault(slog.New(newHandler(os.Stdout, levelStr, env)))
}

func newHandler(w io.Writer, levelStr string, env string) slog.Handler {
	level := parseLogLevel(levelStr)
	if env == "dev" || env == "development" {
		return tint.NewHandler(w, &tint.Options{Level: level})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
