// Package logging builds the structured JSON logger
// shared by the service.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a JSON slog logger at the given
// level. Supported levels: debug, info, warn, error.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(
		os.Stdout,
		&slog.HandlerOptions{Level: lvl},
	)

	return slog.New(handler)
}

// SanitizeToken masks a credential for safe logging:
// the first and last four characters survive, anything
// shorter collapses to stars.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}

	return token[:4] + "..." + token[len(token)-4:]
}
