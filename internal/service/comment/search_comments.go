package comment

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/views"
)

// Search pages over comments whose content contains the query, newest
// first. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, in SearchInput) (*connection.Page, error) {
	shape, err := views.Prepare(views.Comment, in.Select)
	if err != nil {
		return nil, err
	}

	text := domain.NormalizeQuery(in.Query)
	if text == "" {
		return query.Empty(), nil
	}

	where := storage.And{storage.Contains{Field: "content", Text: text}}
	if in.PostID != "" {
		where = append(where, storage.Eq{Field: "postId", Value: in.PostID})
	}

	page, err := query.Page(ctx, s.store, s.pager, storage.Query{
		Type:    typeName,
		Where:   where,
		OrderBy: []storage.Order{{Field: "createdAt", Desc: true}},
	}, shape, in.Args)
	if err != nil {
		return nil, fmt.Errorf("comment.Search: %w", err)
	}
	return page, nil
}
