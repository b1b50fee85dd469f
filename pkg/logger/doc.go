// Package logger builds the structured slog loggers used across the gateway.
// Production logs are JSON; development logs use the text handler.
package logger
