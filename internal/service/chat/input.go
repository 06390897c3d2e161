package chat

import (
	"strings"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
)

// ByIDInput holds the parameters for chatroom.byId and chatroommessage.byId.
type ByIDInput struct {
	IDs    []string
	Select []string
}

// Validate checks the requested ids.
func (i ByIDInput) Validate() error {
	return query.ValidateIDs(i.IDs)
}

// RoomListInput holds the parameters for chatroom.list.
type RoomListInput struct {
	Args   connection.Args
	Select []string
}

// AddMessageInput holds the parameters for chatroommessage.add.
type AddMessageInput struct {
	ChatRoomID string
	Content    string
	Select     []string
}

// Validate checks all fields and collects all errors.
func (i AddMessageInput) Validate() error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.ChatRoomID) == "" {
		errs = append(errs, domain.FieldError{Field: "chatRoomId", Message: "required"})
	}
	if strings.TrimSpace(i.Content) == "" {
		errs = append(errs, domain.FieldError{Field: "content", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// EditMessageInput holds the parameters for chatroommessage.edit.
type EditMessageInput struct {
	ID      string
	Content string
	Select  []string
}

// Validate checks all fields and collects all errors.
func (i EditMessageInput) Validate() error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.ID) == "" {
		errs = append(errs, domain.FieldError{Field: "id", Message: "required"})
	}
	if strings.TrimSpace(i.Content) == "" {
		errs = append(errs, domain.FieldError{Field: "content", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// DeleteMessageInput holds the parameters for chatroommessage.delete.
type DeleteMessageInput struct {
	ID     string
	Select []string
}

// Validate checks the message id.
func (i DeleteMessageInput) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return domain.NewValidationError("id", "required")
	}
	return nil
}

// MessageListInput holds the parameters for chatroommessage.list. An empty
// ChatRoomID lists messages of every visible room.
type MessageListInput struct {
	ChatRoomID string
	Args       connection.Args
	Select     []string
}

// MessageSearchInput holds the parameters for chatroommessage.search.
type MessageSearchInput struct {
	Query      string
	ChatRoomID string
	Args       connection.Args
	Select     []string
}
