package chat

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/live"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
)

var _ live.Replayer = (*Service)(nil)

// Replay loads the messages of room stored after sequence number after,
// oldest first, as live events.
func (s *Service) Replay(ctx context.Context, room string, after int64, limit int) ([]live.Event, error) {
	full := views.Full(views.ChatRoomMessage)

	nodes, err := s.store.Scan(ctx, storage.Query{
		Type:      messageType,
		Selection: full.Selection,
		Where: storage.And{
			storage.Eq{Field: "chatRoomId", Value: room},
			storage.Gt{Field: "seq", Value: after},
		},
		OrderBy: []storage.Order{{Field: "seq"}},
		Take:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("chatroommessage.Replay: %w", err)
	}

	events := make([]live.Event, len(nodes))
	for i, n := range nodes {
		events[i] = live.Event{ID: view.Int(n.Row["seq"]), Room: room, Data: full.One(n.Row)}
	}
	return events, nil
}
