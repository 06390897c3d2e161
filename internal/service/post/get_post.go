package post

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
)

// ByID returns the posts with the given ids in request order.
func (s *Service) ByID(ctx context.Context, in ByIDInput) ([]view.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.Post, in.Select)
	if err != nil {
		return nil, err
	}

	rows, err := query.ByIDs(ctx, s.store, typeName, in.IDs, nil, shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("post.ByID: %w", err)
	}
	return shape.Many(rows), nil
}
