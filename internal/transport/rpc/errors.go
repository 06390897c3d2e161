package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// Error codes carried in extensions.code.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeValidation    = "VALIDATION"
	CodeUnauthorized  = "UNAUTHENTICATED"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodeStaleCursor   = "STALE_CURSOR"
	CodeConfiguration = "CONFIGURATION"
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternal      = "INTERNAL"
)

// errBadRequest marks envelope-level failures: unknown procedure, malformed
// JSON, oversized batch.
var errBadRequest = errors.New("bad request")

// presentError maps a domain error to a gqlerror with extensions.code and the
// HTTP status of a single-call response. Unexpected errors are logged and
// reported as a generic internal error.
func presentError(ctx context.Context, log *slog.Logger, procedure string, err error) (*gqlerror.Error, int) {
	gqlErr := &gqlerror.Error{Message: err.Error()}
	if procedure != "" {
		gqlErr.Path = ast.Path{ast.PathName(procedure)}
	}

	code, status := CodeInternal, http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		code, status = CodeBadRequest, http.StatusBadRequest

	case errors.Is(err, domain.ErrNotFound):
		code, status = CodeNotFound, http.StatusNotFound

	case errors.Is(err, domain.ErrAlreadyExists):
		code, status = CodeAlreadyExists, http.StatusConflict

	case errors.Is(err, domain.ErrValidation):
		code, status = CodeValidation, http.StatusBadRequest

	case errors.Is(err, domain.ErrUnauthorized):
		code, status = CodeUnauthorized, http.StatusUnauthorized

	case errors.Is(err, domain.ErrForbidden):
		code, status = CodeForbidden, http.StatusForbidden

	case errors.Is(err, domain.ErrConflict):
		code, status = CodeConflict, http.StatusConflict

	case errors.Is(err, domain.ErrStaleCursor):
		code, status = CodeStaleCursor, http.StatusConflict

	case errors.Is(err, domain.ErrConfiguration):
		// a view the route cannot serve is a server bug, not a client one
		log.ErrorContext(ctx, "view configuration error",
			slog.String("procedure", procedure),
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
		)

		code = CodeConfiguration

	default:
		log.ErrorContext(ctx, "unexpected rpc error",
			slog.String("procedure", procedure),
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
		)
		gqlErr.Message = "internal error"
	}

	gqlErr.Extensions = map[string]any{"code": code}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		gqlErr.Extensions["fields"] = ve.Errors
	}
	var sc *domain.StaleCursorError
	if errors.As(err, &sc) {
		gqlErr.Extensions["cursor"] = sc.Cursor
	}

	return gqlErr, status
}
