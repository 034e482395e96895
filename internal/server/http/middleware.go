package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rzbill/eventd/pkg/log"
)

type ctxKey int

const requestIDKey ctxKey = iota

// correlate assigns every request an id, honoring a caller-provided
// X-Request-ID, and echoes it back so clients can reference it.
func correlate(next http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		logger.Debug("request",
			log.Str("method", r.Method),
			log.Str("path", r.URL.Path),
			log.Str("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the correlation id for the request, if any.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
