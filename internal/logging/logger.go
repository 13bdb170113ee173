package logging

import (
	"log/slog"
	"os"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithUser returns a logger with a username field.
func WithUser(username string) *slog.Logger {
	return Logger.With("username", username)
}

// WithOrganization returns a logger with an organization field.
func WithOrganization(name string) *slog.Logger {
	return Logger.With("organization", name)
}

// WithToken returns a logger carrying a truncated token prefix. Full session
// tokens never appear in logs.
func WithToken(token string) *slog.Logger {
	return Logger.With("token_prefix", TokenPrefix(token))
}

// TokenPrefix returns the first 8 characters of a token for audit logging.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
