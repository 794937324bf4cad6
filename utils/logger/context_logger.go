package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

// Business context keys. B2C keys follow OpenTelemetry naming with a
// "b2c." prefix.
const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "b2c.operation"
	SubjectKey   ContextKey = "b2c.subject"
	PolicyKey    ContextKey = "b2c.policy"
	TagKey       ContextKey = "b2c.tag"
)

var contextKeys = []ContextKey{RequestIDKey, OperationKey, SubjectKey, PolicyKey, TagKey}

// ContextLogger adds business keys found in a context to log records.
type ContextLogger struct {
	logger *slog.Logger
}

// NewContextLogger wraps logger.
func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns a logger carrying every business key set on ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	var fields []any
	for _, key := range contextKeys {
		if value, ok := ctx.Value(key).(string); ok && value != "" {
			fields = append(fields, string(key), value)
		}
	}
	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// LogDuration logs how long operation took.
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, durationMs int64) {
	cl.WithContext(ctx).InfoContext(ctx, "operation completed",
		"operation", operation,
		"duration_ms", durationMs,
	)
}

// LogError logs a failed operation with optional extra attributes.
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error, attrs ...any) {
	args := append([]any{"operation", operation, "error", err}, attrs...)
	cl.WithContext(ctx).ErrorContext(ctx, "operation failed", args...)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

func WithPolicy(ctx context.Context, policy string) context.Context {
	return context.WithValue(ctx, PolicyKey, policy)
}

func WithTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, TagKey, tag)
}
