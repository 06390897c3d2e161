package post

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// postStore defines the storage operations needed by post service.
type postStore interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
}

// Service implements the post routes.
type Service struct {
	log   *slog.Logger
	store postStore
	pager connection.Pager
}

// NewService creates a new post service instance.
func NewService(logger *slog.Logger, store postStore, pager connection.Pager) *Service {
	return &Service{
		log:   logger.With("service", "post"),
		store: store,
		pager: pager,
	}
}

const typeName = "Post"

// newestFirst is the feed order.
var newestFirst = []storage.Order{{Field: "createdAt", Desc: true}}
