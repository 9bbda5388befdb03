package observability

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// NewRequestID mints a random (version 4) request id.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidRequestID reports whether id is a UUID we are willing to propagate.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > 36 {
		return false
	}
	return uuid.Validate(id) == nil
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDField is the zap field attached to every calculator log line.
func RequestIDField(ctx context.Context) zap.Field {
	return zap.String("request_id", RequestIDFromContext(ctx))
}
