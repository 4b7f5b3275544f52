package model

import (
	"errors"
	"fmt"
)

// Generic errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("insufficient permissions")
	ErrAuth      = errors.New("invalid credentials")
	ErrConflict  = errors.New("already exists")
)

// Ledger errors.
var (
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrUnknownPerson       = errors.New("person does not match any user")
	ErrInvalidMovementKind = errors.New("invalid movement kind")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrComponentNotFound   = fmt.Errorf("component %w", ErrNotFound)
	ErrMovementNotFound    = fmt.Errorf("movement %w", ErrNotFound)
)

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Required returns a ValidationError for a missing field.
func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required"}
}

// ExternalError wraps a failure of an outside collaborator (asset store, mail).
type ExternalError struct {
	Service string
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
