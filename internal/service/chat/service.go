package chat

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/live"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// chatStore defines the storage operations needed by chat service.
type chatStore interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Count(ctx context.Context, typeName string, where storage.Cond) (int64, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
	Create(ctx context.Context, typeName string, values storage.Values) (string, error)
	Update(ctx context.Context, typeName, id string, where storage.Cond, values storage.Values) error
	Delete(ctx context.Context, typeName, id string, where storage.Cond) error
}

// txManager defines the transaction manager interface needed by chat service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// publisher receives new messages for live delivery.
type publisher interface {
	Publish(ev live.Event)
}

// Service implements the chat room and chat room message routes.
type Service struct {
	log   *slog.Logger
	store chatStore
	tx    txManager
	pager connection.Pager
	live  publisher
}

// NewService creates a new chat service instance.
func NewService(logger *slog.Logger, store chatStore, tx txManager, pager connection.Pager, live publisher) *Service {
	return &Service{
		log:   logger.With("service", "chat"),
		store: store,
		tx:    tx,
		pager: pager,
		live:  live,
	}
}

const (
	roomType    = "ChatRoom"
	messageType = "ChatRoomMessage"
)

var newestFirst = []storage.Order{{Field: "createdAt", Desc: true}}
