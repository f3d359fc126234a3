// Package logger builds configured slog loggers and provides semantic
// attribute helpers so log keys stay consistent across the codebase
// (user_id, component, error) instead of drifting per call site.
package logger
