package httpx

import (
	"context"
	"net/http"

	"github.com/pawsen/library-org/internal/events"
)

type contextKey string

const (
	usernameKey  contextKey = "username"
	requestIDKey contextKey = "requestID"
)

// UsernameFrom returns the authenticated username, or "" for anonymous
// requests.
func UsernameFrom(r *http.Request) string {
	if v, ok := r.Context().Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithRequestID stores the request id, which also becomes the
// correlation id of any event published while serving the request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return events.WithCorrelationID(ctx, requestID)
}
