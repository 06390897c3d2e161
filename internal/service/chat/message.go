package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/live"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// MessageAdd posts a message to a room the caller can see and publishes it
// to the room's live subscribers.
func (s *Service) MessageAdd(ctx context.Context, in AddMessageInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}
	// the live event carries the whole message, a superset of any selection
	full := views.Full(views.ChatRoomMessage)

	var row view.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.store.Count(ctx, roomType, storage.And{storage.IDs(in.ChatRoomID), roomVisible(userID)})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("chat room %s: %w", in.ChatRoomID, domain.ErrNotFound)
		}

		id, err := s.store.Create(ctx, messageType, storage.Values{
			"authorId":   userID,
			"chatRoomId": in.ChatRoomID,
			"content":    in.Content,
		})
		if err != nil {
			return err
		}

		row, err = query.One(ctx, s.store, messageType, id, nil, full.Selection)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.Add: %w", err)
	}

	ev := live.Event{ID: view.Int(row["seq"]), Room: in.ChatRoomID, Data: full.One(row)}
	s.live.Publish(ev)

	s.log.InfoContext(ctx, "chat message added",
		slog.String("user_id", userID),
		slog.String("room", in.ChatRoomID),
		slog.Int64("seq", ev.ID),
	)

	return shape.One(row), nil
}

// MessageByID returns the messages with the given ids. Every message must
// be in a room the caller can see.
func (s *Service) MessageByID(ctx context.Context, in ByIDInput) ([]view.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}

	userID, _ := ctxutil.UserIDFromCtx(ctx)
	rows, err := query.ByIDs(ctx, s.store, messageType, in.IDs, messageVisible(userID), shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.ByID: %w", err)
	}
	return shape.Many(rows), nil
}

// MessageEdit replaces the content of a message the caller wrote or
// administers.
func (s *Service) MessageEdit(ctx context.Context, in EditMessageInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}

	var row view.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, messageType, in.ID, messageMutable(userID), storage.Values{
			"content": in.Content,
		}); err != nil {
			return err
		}
		row, err = query.One(ctx, s.store, messageType, in.ID, nil, shape.Selection)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.Edit: %w", err)
	}

	s.log.InfoContext(ctx, "chat message edited",
		slog.String("user_id", userID),
		slog.String("message_id", in.ID),
	)

	return shape.One(row), nil
}

// MessageDelete removes a message the caller wrote or administers and
// returns it as it was, with the room's message count already reflecting
// the removal.
func (s *Service) MessageDelete(ctx context.Context, in DeleteMessageInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}

	mutable := messageMutable(userID)

	var row view.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		row, err = query.One(ctx, s.store, messageType, in.ID, mutable, shape.Selection)
		if err != nil {
			return err
		}
		return s.store.Delete(ctx, messageType, in.ID, mutable)
	})
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.Delete: %w", err)
	}

	query.Decrement(row, "chatRoom", "messageTotal")

	s.log.InfoContext(ctx, "chat message deleted",
		slog.String("user_id", userID),
		slog.String("message_id", in.ID),
	)

	return shape.One(row), nil
}

// MessageList pages over visible messages, newest first.
func (s *Service) MessageList(ctx context.Context, in MessageListInput) (*connection.Page, error) {
	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}

	userID, _ := ctxutil.UserIDFromCtx(ctx)
	where := storage.And{messageVisible(userID)}
	if in.ChatRoomID != "" {
		where = append(where, storage.Eq{Field: "chatRoomId", Value: in.ChatRoomID})
	}

	page, err := query.Page(ctx, s.store, s.pager, storage.Query{
		Type:    messageType,
		Where:   where,
		OrderBy: newestFirst,
	}, shape, in.Args)
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.List: %w", err)
	}
	return page, nil
}

// MessageSearch pages over visible messages whose content contains the
// query, newest first. A blank query matches nothing.
func (s *Service) MessageSearch(ctx context.Context, in MessageSearchInput) (*connection.Page, error) {
	shape, err := views.Prepare(views.ChatRoomMessage, in.Select)
	if err != nil {
		return nil, err
	}

	text := domain.NormalizeQuery(in.Query)
	if text == "" {
		return query.Empty(), nil
	}

	userID, _ := ctxutil.UserIDFromCtx(ctx)
	where := storage.And{
		messageVisible(userID),
		storage.Contains{Field: "content", Text: text},
	}
	if in.ChatRoomID != "" {
		where = append(where, storage.Eq{Field: "chatRoomId", Value: in.ChatRoomID})
	}

	page, err := query.Page(ctx, s.store, s.pager, storage.Query{
		Type:    messageType,
		Where:   where,
		OrderBy: newestFirst,
	}, shape, in.Args)
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.Search: %w", err)
	}
	return page, nil
}
