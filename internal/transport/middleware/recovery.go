package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// Recovery recovers from handler panics, logs them with a stack trace and
// answers 500 with the RPC error envelope, so clients decode it like any
// other INTERNAL error. http.ErrAbortHandler is passed through.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("error", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
				)
				writeInternal(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeInternal(w http.ResponseWriter) {
	body := struct {
		Errors gqlerror.List `json:"errors"`
	}{
		Errors: gqlerror.List{{
			Message:    "internal server error",
			Extensions: map[string]any{"code": "INTERNAL"},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
