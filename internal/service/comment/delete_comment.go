package comment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// Delete removes one of the caller's comments and returns it as it was,
// with the post's comment count already reflecting the removal.
func (s *Service) Delete(ctx context.Context, in DeleteInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.Comment, in.Select)
	if err != nil {
		return nil, err
	}

	owned := storage.Eq{Field: "authorId", Value: userID}

	var row view.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		row, err = query.One(ctx, s.store, typeName, in.ID, owned, shape.Selection)
		if err != nil {
			return err
		}
		return s.store.Delete(ctx, typeName, in.ID, owned)
	})
	if err != nil {
		return nil, fmt.Errorf("comment.Delete: %w", err)
	}

	query.Decrement(row, "post", "commentTotal")

	s.log.InfoContext(ctx, "comment deleted",
		slog.String("user_id", userID),
		slog.String("comment_id", in.ID),
	)

	return shape.One(row), nil
}
