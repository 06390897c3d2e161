package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrConfiguration      = errors.New("configuration error")
	ErrStaleCursor        = errors.New("stale cursor")
	ErrOptimisticConflict = errors.New("optimistic conflict")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// ConfigurationError reports a malformed view declaration: an unknown field,
// a field requested with two different shapes, or a derived field that needs
// a storage field the entity does not have. It is a programmer error and is
// expected to surface at startup.
type ConfigurationError struct {
	Type   string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s.%s: %s", e.Type, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(typeName, field, reason string) *ConfigurationError {
	return &ConfigurationError{Type: typeName, Field: field, Reason: reason}
}

// StaleCursorError is returned when a pagination cursor can no longer be
// placed in the result set. Callers recover by paginating from the start.
type StaleCursorError struct {
	Cursor string
}

func (e *StaleCursorError) Error() string {
	return fmt.Sprintf("stale cursor %q", e.Cursor)
}

func (e *StaleCursorError) Unwrap() error { return ErrStaleCursor }

// OptimisticConflictError is returned to the caller of an optimistic
// mutation when the server rejected it. The optimistic write has already
// been rolled back when the caller sees it.
type OptimisticConflictError struct {
	Key string
	Err error
}

func (e *OptimisticConflictError) Error() string {
	return fmt.Sprintf("optimistic %s rejected: %v", e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the server error.
func (e *OptimisticConflictError) Unwrap() []error {
	return []error{ErrOptimisticConflict, e.Err}
}
