// Package logger builds the gateway's log/slog logger: text output in
// development, JSON in production, optionally teed to a rotated log file.
package logger
