package observability

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pocket-calculator/internal/handlers"
)

// Failure describes an error to be reported by RecordError.
type Failure struct {
	Operation string
	Message   string
	Err       error
	Status    int

	// Fields are appended to the error log entry.
	Fields []zap.Field
}

// RecordError centralises error handling across all domains: records the error
// on the span, increments the provided error counter, logs with trace context,
// and writes a JSON error HTTP response.
func RecordError(ctx context.Context, w http.ResponseWriter, span trace.Span, logger *zap.Logger, counter metric.Int64Counter, f Failure) {
	span.RecordError(f.Err)
	span.SetStatus(codes.Error, f.Message)

	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", f.Operation),
		attribute.Int("status", f.Status),
	))

	fields := append([]zap.Field{
		zap.String("operation", f.Operation),
		zap.Error(f.Err),
		zap.Int("status", f.Status),
		RequestIDField(ctx),
	}, f.Fields...)

	if f.Status >= http.StatusInternalServerError {
		logger.Error(f.Message, fields...)
	} else {
		logger.Warn(f.Message, fields...)
	}

	handlers.WriteError(w, f.Status, f.Message, RequestIDFromContext(ctx))
}
