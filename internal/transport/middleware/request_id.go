package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

const maxRequestIDLen = 128

// RequestID propagates the client X-Request-Id or assigns a fresh one.
// Oversized client ids are replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		ctx := ctxutil.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
