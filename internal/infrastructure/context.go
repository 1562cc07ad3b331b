package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "cellprep/internal/errors"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// ContextWithTraceID creates a new context with a generated trace ID
func ContextWithTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateTraceID())
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field, plus error_type for
// application errors.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	if errType := apperrors.TypeOf(err); errType != "" {
		return logger.With("error", err.Error(), "error_type", string(errType))
	}
	return logger.With("error", err.Error())
}
