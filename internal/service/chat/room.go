package chat

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// RoomByID returns the rooms with the given ids. A room the caller may not
// see is reported as not found.
func (s *Service) RoomByID(ctx context.Context, in ByIDInput) ([]view.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.ChatRoom, in.Select)
	if err != nil {
		return nil, err
	}

	userID, _ := ctxutil.UserIDFromCtx(ctx)
	rows, err := query.ByIDs(ctx, s.store, roomType, in.IDs, roomVisible(userID), shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("chatroom.ByID: %w", err)
	}
	return shape.Many(rows), nil
}

// RoomList pages over the rooms visible to the caller, newest first.
func (s *Service) RoomList(ctx context.Context, in RoomListInput) (*connection.Page, error) {
	shape, err := views.Prepare(views.ChatRoom, in.Select)
	if err != nil {
		return nil, err
	}

	userID, _ := ctxutil.UserIDFromCtx(ctx)
	page, err := query.Page(ctx, s.store, s.pager, storage.Query{
		Type:    roomType,
		Where:   roomVisible(userID),
		OrderBy: newestFirst,
	}, shape, in.Args)
	if err != nil {
		return nil, fmt.Errorf("chatroom.List: %w", err)
	}
	return page, nil
}

// Authorize reports whether the caller may follow room. Rooms the caller
// cannot see are reported as not found.
func (s *Service) Authorize(ctx context.Context, room string) error {
	userID, _ := ctxutil.UserIDFromCtx(ctx)
	n, err := s.store.Count(ctx, roomType, storage.And{storage.IDs(room), roomVisible(userID)})
	if err != nil {
		return fmt.Errorf("chatroom.Authorize: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("chat room %s: %w", room, domain.ErrNotFound)
	}
	return nil
}
