package internal

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a leveled zerolog logger.
// format "json" writes one JSON object per line, anything else a console layout.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// LoggerFromConfig applies the verbose flag on top of the configured level
func LoggerFromConfig(w io.Writer, config *Config) zerolog.Logger {
	level := config.LogLevel
	if config.Verbose {
		level = "debug"
	}
	return NewLogger(w, level, config.LogFormat)
}
