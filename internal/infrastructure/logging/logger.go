package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "kalliope-app"

// Logger is a slog.Logger carrying the service and version fields. It is
// safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New returns a Logger for cfg. Output defaults to stderr because stdout
// carries command output for the CLI.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter returns a Logger writing to w. cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return &Logger{slog.New(h).With("service", ServiceName, "version", version)}
}

// parseLevel maps a configured level name to slog. Unknown names are info.
func parseLevel(name string) slog.Level {
	return levels[strings.ToLower(name)]
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// With returns a child Logger, typically tagged with a component name.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Default is the info level text logger used before configuration loads.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "text"}, "dev")
}
