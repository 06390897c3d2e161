package comment

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

// Add comments on a post as the caller.
func (s *Service) Add(ctx context.Context, in AddInput) (view.Record, error) {
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

	var row view.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.store.Count(ctx, "Post", storage.IDs(in.PostID))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("post %s: %w", in.PostID, domain.ErrNotFound)
		}

		id, err := s.store.Create(ctx, typeName, storage.Values{
			"authorId": userID,
			"postId":   in.PostID,
			"content":  strings.TrimSpace(in.Content),
		})
		if err != nil {
			return err
		}

		row, err = query.One(ctx, s.store, typeName, id, nil, shape.Selection)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("comment.Add: %w", err)
	}

	s.log.InfoContext(ctx, "comment added",
		slog.String("user_id", userID),
		slog.String("post_id", in.PostID),
	)

	return shape.One(row), nil
}
