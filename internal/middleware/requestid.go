// Package middleware implements the multi-tenant request pipeline: request
// identity, token authentication, tenant resolution and consistency guarding,
// and session hydration. Stages run strictly in that order; each stage
// derives a new immutable request context rather than mutating the request.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reside-hq/reside/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID is HTTP middleware that extracts X-Request-ID from the request
// header or generates a new one. The ID is stored in the context and set
// on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
