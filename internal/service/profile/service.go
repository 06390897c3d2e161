package profile

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// profileStore defines the storage operations needed by profile service.
type profileStore interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
	Create(ctx context.Context, typeName string, values storage.Values) (string, error)
	Update(ctx context.Context, typeName, id string, where storage.Cond, values storage.Values) error
}

// txManager defines the transaction manager interface needed by profile service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the profile routes.
type Service struct {
	log   *slog.Logger
	store profileStore
	tx    txManager
	pager connection.Pager
}

// NewService creates a new profile service instance.
func NewService(logger *slog.Logger, store profileStore, tx txManager, pager connection.Pager) *Service {
	return &Service{
		log:   logger.With("service", "profile"),
		store: store,
		tx:    tx,
		pager: pager,
	}
}
