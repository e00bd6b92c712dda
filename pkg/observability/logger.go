package observability

import (
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

// NewLogger builds a JSON structured logger tagged with the service name.
// LOG_LEVEL (debug|info|warn|error) controls verbosity, defaulting to info.
func NewLogger(serviceName string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})

	logger := slog.New(handler).With("service", serviceName)
	return &Logger{logger}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
