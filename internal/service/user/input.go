package user

import (
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
)

// ByIDInput holds the parameters for user.byId.
type ByIDInput struct {
	IDs    []string
	Select []string
}

// Validate checks the requested ids.
func (i ByIDInput) Validate() error {
	return query.ValidateIDs(i.IDs)
}

// UpdateInput holds the parameters for user.update.
type UpdateInput struct {
	Name   string
	Select []string
}

// Validate checks all fields and collects all errors.
func (i UpdateInput) Validate() error {
	var errs []domain.FieldError

	n := utf8.RuneCountInString(strings.TrimSpace(i.Name))
	if n < 2 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "min 2 characters"})
	}
	if n > 50 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "max 50 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
