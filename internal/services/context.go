package services

import "context"

type contextKey string

const (
	messageTypeKey contextKey = "message_type"
	requestIDKey   contextKey = "request_id"
)

// WithMessageType annotates context with the bus message being handled.
func WithMessageType(ctx context.Context, messageType string) context.Context {
	if messageType == "" {
		return ctx
	}
	return context.WithValue(ctx, messageTypeKey, messageType)
}

// MessageTypeFromContext returns the bus message name if present.
func MessageTypeFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(messageTypeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
