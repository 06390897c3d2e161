package comment

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// commentStore defines the storage operations needed by comment service.
type commentStore interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Count(ctx context.Context, typeName string, where storage.Cond) (int64, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
	Create(ctx context.Context, typeName string, values storage.Values) (string, error)
	Delete(ctx context.Context, typeName, id string, where storage.Cond) error
}

// txManager defines the transaction manager interface needed by comment service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the comment routes.
type Service struct {
	log   *slog.Logger
	store commentStore
	tx    txManager
	pager connection.Pager
}

// NewService creates a new comment service instance.
func NewService(logger *slog.Logger, store commentStore, tx txManager, pager connection.Pager) *Service {
	return &Service{
		log:   logger.With("service", "comment"),
		store: store,
		tx:    tx,
		pager: pager,
	}
}

const typeName = "Comment"
