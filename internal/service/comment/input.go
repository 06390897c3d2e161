package comment

import (
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
)

// AddInput holds the parameters for comment.add.
type AddInput struct {
	PostID  string
	Content string
	Select  []string
}

// Validate checks all fields and collects all errors.
func (i AddInput) Validate() error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.PostID) == "" {
		errs = append(errs, domain.FieldError{Field: "postId", Message: "required"})
	}
	content := strings.TrimSpace(i.Content)
	if content == "" {
		errs = append(errs, domain.FieldError{Field: "content", Message: "required"})
	}
	if utf8.RuneCountInString(content) > 2000 {
		errs = append(errs, domain.FieldError{Field: "content", Message: "max 2000 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// DeleteInput holds the parameters for comment.delete.
type DeleteInput struct {
	ID     string
	Select []string
}

// Validate checks the comment id.
func (i DeleteInput) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return domain.NewValidationError("id", "required")
	}
	return nil
}

// SearchInput holds the parameters for comment.search. An empty PostID
// searches every post.
type SearchInput struct {
	Query  string
	PostID string
	Args   connection.Args
	Select []string
}
