package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/go-chi/httplog/v3"
)

const appName = "timesheet-cmlabs"

// New builds the process logger. JSON output uses the ECS field names that the
// httplog request logger writes, so application and request logs line up.
func New(cfg config.AppConfig) *slog.Logger {
	return newWithWriter(os.Stdout, cfg)
}

func newWithWriter(w io.Writer, cfg config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		opts.ReplaceAttr = httplog.SchemaECS.Concise(cfg.Env != "production").ReplaceAttr
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("app", appName),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
