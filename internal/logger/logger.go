package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/balance-ledger/internal/config"
	"github.com/balance-ledger/internal/domain/shared"
)

// NewLogger creates the JSON logger shared by a binary's components
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("app", cfg.Application.Name)
	}
	if cfg.Application.Env != "" {
		logger = logger.With("env", cfg.Application.Env)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithCorrelation returns a logger tagged with the request's correlation id, if ctx carries one
func WithCorrelation(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if correlationID := shared.CorrelationIDFromContext(ctx); correlationID != "" {
		return logger.With("correlation_id", correlationID)
	}
	return logger
}
