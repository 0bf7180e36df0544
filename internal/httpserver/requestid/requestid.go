// Package requestid propagates a per-request trace id through context and
// response headers.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyID    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

// FromContext returns the request id stored on ctx, or "" if none.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyID).(string); ok {
		return id
	}
	return ""
}

// Middleware generates or propagates an X-Request-ID for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), contextKeyID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
