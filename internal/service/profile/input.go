package profile

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
)

// ByIDInput holds the parameters for profile.byId.
type ByIDInput struct {
	IDs    []string
	Select []string
}

// Validate checks the requested ids.
func (i ByIDInput) Validate() error {
	return query.ValidateIDs(i.IDs)
}

// ByUserIDInput holds the parameters for profile.byUserId.
type ByUserIDInput struct {
	UserID string
	Args   connection.Args
	Select []string
}

// Validate checks the user id.
func (i ByUserIDInput) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return domain.NewValidationError("userId", "required")
	}
	return nil
}

// UpdateInput holds the parameters for profile.update. Nil fields are left
// unchanged.
type UpdateInput struct {
	Bio      *string
	Location *string
	Website  *string
	Twitter  *string
	Github   *string
	Linkedin *string
	Private  *bool
	Select   []string
}

// Validate checks all fields and collects all errors.
func (i UpdateInput) Validate() error {
	var errs []domain.FieldError

	maxLen := func(field string, v *string, limit int) {
		if v != nil && utf8.RuneCountInString(*v) > limit {
			errs = append(errs, domain.FieldError{Field: field, Message: "too long"})
		}
	}
	maxLen("bio", i.Bio, 500)
	maxLen("location", i.Location, 100)
	maxLen("twitter", i.Twitter, 100)
	maxLen("github", i.Github, 100)
	maxLen("linkedin", i.Linkedin, 200)
	maxLen("website", i.Website, 200)

	if i.Website != nil && !validURL(*i.Website) {
		errs = append(errs, domain.FieldError{Field: "website", Message: "must be a valid URL"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// values returns the provided fields as storage writes.
func (i UpdateInput) values() storage.Values {
	out := storage.Values{}
	set := func(field string, v *string) {
		if v != nil {
			out[field] = *v
		}
	}
	set("bio", i.Bio)
	set("location", i.Location)
	set("website", i.Website)
	set("twitter", i.Twitter)
	set("github", i.Github)
	set("linkedin", i.Linkedin)
	if i.Private != nil {
		out["private"] = *i.Private
	}
	return out
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
