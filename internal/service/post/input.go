package post

import (
	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/service/query"
)

// ByIDInput holds the parameters for post.byId.
type ByIDInput struct {
	IDs    []string
	Select []string
}

// Validate checks the requested ids.
func (i ByIDInput) Validate() error {
	return query.ValidateIDs(i.IDs)
}

// ListInput holds the parameters for post.list. An empty AuthorID lists
// every post.
type ListInput struct {
	AuthorID string
	Args     connection.Args
	Select   []string
}
