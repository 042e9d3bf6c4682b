package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a console logger at info level
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a console logger at the given level ("debug", "info",
// "warn", ...). Unknown levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a JSON logger writing to w
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// NewForFormat picks the output by name: "json" writes JSON lines to stdout,
// anything else is the console logger.
func NewForFormat(format, level string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return NewWithWriter(os.Stdout).Level(ParseLevel(level))
	}
	return NewWithLevel(level)
}

// ParseLevel parses a level name, defaulting to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// ForProperty tags a logger with the property and scenario being worked on
func ForProperty(logger zerolog.Logger, imovel, cenario string) zerolog.Logger {
	return logger.With().Str("imovel", imovel).Str("cenario", cenario).Logger()
}
