package user

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// userStore defines the storage operations needed by user service.
type userStore interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
	Update(ctx context.Context, typeName, id string, where storage.Cond, values storage.Values) error
}

// Service implements the user routes.
type Service struct {
	log   *slog.Logger
	store userStore
}

// NewService creates a new user service instance.
func NewService(logger *slog.Logger, store userStore) *Service {
	return &Service{
		log:   logger.With("service", "user"),
		store: store,
	}
}
