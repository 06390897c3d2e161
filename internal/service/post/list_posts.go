package post

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/views"
)

// List pages over posts, newest first.
func (s *Service) List(ctx context.Context, in ListInput) (*connection.Page, error) {
	shape, err := views.Prepare(views.Post, in.Select)
	if err != nil {
		return nil, err
	}

	q := storage.Query{Type: typeName, OrderBy: newestFirst}
	if in.AuthorID != "" {
		q.Where = storage.Eq{Field: "authorId", Value: in.AuthorID}
	}

	page, err := query.Page(ctx, s.store, s.pager, q, shape, in.Args)
	if err != nil {
		return nil, fmt.Errorf("post.List: %w", err)
	}
	return page, nil
}
