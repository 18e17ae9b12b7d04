package logging

import (
	"context"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	targetKey    contextKey = "target"
	cycleIDKey   contextKey = "cycle_id"
	requestIDKey contextKey = "request_id"
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, falls back to global
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return global
}

// WithTarget tags the context with the polled address
func WithTarget(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, targetKey, addr)
}

// WithCycleID tags the context with the poll cycle it belongs to
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

// WithRequestID adds an API request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func extractContextFields(ctx context.Context) []interface{} {
	var fields []interface{}
	for _, key := range []contextKey{targetKey, cycleIDKey, requestIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// Ctx returns the context logger enriched with the context's fields
func Ctx(ctx context.Context) *Logger {
	return FromContext(ctx).WithContext(ctx)
}
