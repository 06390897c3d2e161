package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

const typeName = "User"

// ByID returns the users with the given ids. Callers may only read
// themselves.
func (s *Service) ByID(ctx context.Context, in ByIDInput) ([]view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.User, in.Select)
	if err != nil {
		return nil, err
	}

	rows, err := query.ByIDs(ctx, s.store, typeName, in.IDs, nil, shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("user.ByID: %w", err)
	}
	for _, row := range rows {
		if row[view.IDField] != userID {
			return nil, fmt.Errorf("one or more users are private: %w", domain.ErrForbidden)
		}
	}
	return shape.Many(rows), nil
}

// Update renames the caller and returns the updated user.
func (s *Service) Update(ctx context.Context, in UpdateInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.User, in.Select)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := s.store.Update(ctx, typeName, userID, nil, storage.Values{"name": name}); err != nil {
		return nil, fmt.Errorf("user.Update: %w", err)
	}

	row, err := query.One(ctx, s.store, typeName, userID, nil, shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("user.Update: %w", err)
	}

	s.log.InfoContext(ctx, "user renamed", slog.String("user_id", userID))

	return shape.One(row), nil
}
