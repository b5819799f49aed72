// Package middleware carries the HTTP middleware chain: request IDs,
// request-scoped time, and caller authentication. Values flow to services
// through pkg/requestcontext, never through handler parameters.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"registrar/pkg/requestcontext"
)

// RequestID assigns every request a UUID for log correlation. An incoming
// X-Request-ID header wins so callers can trace across systems.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime captures the current time at the start of the request so all
// availability and expiry decisions within one request observe the same
// instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
