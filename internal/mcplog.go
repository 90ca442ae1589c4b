package internal

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// NewMCPLogger returns a logger writing to mcp.log in the cache directory.
// stdout belongs to the MCP stdio transport, so nothing may be printed there.
// Logging is disabled when the file cannot be opened.
func NewMCPLogger(config *Config) (zerolog.Logger, func()) {
	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return zerolog.Nop(), func() {}
	}

	logPath := filepath.Join(config.CacheDir, "mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), func() {}
	}

	logger := NewLogger(logFile, config.LogLevel, "json").With().Str("component", "mcp").Logger()
	return logger, func() { _ = logFile.Close() }
}
