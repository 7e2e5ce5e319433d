package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id for service level log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{logger: logger.With("service", service)}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, teacherID, resourceID, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		// Adjust log level based on error type
		switch {
		case IsValidation(err):
			level, status = slog.LevelWarn, "validation_error"
		case IsForbidden(err):
			level, status = slog.LevelWarn, "forbidden"
		case IsNotFound(err):
			level, status = slog.LevelInfo, "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("teacher_id", teacherID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		var permErr *PermissionError
		var downstreamErr *DownstreamError
		switch {
		case errors.As(err, &validationErr):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		case errors.As(err, &downstreamErr):
			attrs = append(attrs, slog.String("db_op", downstreamErr.Op), slog.String("db_code", downstreamErr.Code))
		}
	}

	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, teacherID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("teacher_id", teacherID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i == 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// ===== MIDDLEWARE AND HELPERS =====

// OperationLog times one service call and logs its outcome.
type OperationLog struct {
	logger    *ServiceLogger
	ctx       context.Context
	operation string
	teacherID string
	startTime time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, teacherID string) *OperationLog {
	return &OperationLog{
		logger:    l,
		ctx:       ctx,
		operation: operation,
		teacherID: teacherID,
		startTime: time.Now(),
	}
}

func (o *OperationLog) LogResult(resourceID, resourceType string, err error) {
	o.logger.LogOperation(o.ctx, o.operation, o.teacherID, resourceID, resourceType, time.Since(o.startTime), err)

	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) {
		o.logger.LogValidationError(o.ctx, o.operation, o.teacherID, validationErrors)
	}
}
