// Package logger builds the slog logger shared by the engine and its tools.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/wired-engine/internal/config"
)

// Setup installs the process logger on stdout.
func Setup(cfg *config.Config) *slog.Logger {
	return SetupTo(os.Stdout, cfg)
}

// SetupTo installs the process logger on w. Production gets JSON records,
// everything else key=value text. Debug records carry their source line.
// The console passes a file here since the terminal belongs to the UI.
func SetupTo(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithSession tags records with the world they belong to.
func WithSession(logger *slog.Logger, worldID string) *slog.Logger {
	return logger.With("world_id", worldID)
}

// WithError tags records with err's message.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
