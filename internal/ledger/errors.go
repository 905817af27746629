package ledger

import (
	"errors"
	"fmt"
)

// NotFoundError reports a referenced entity that does not exist, or a borrow
// record that has no outstanding quantity to return.
type NotFoundError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

type InsufficientStockError struct {
	MaterialID int64
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for material %d: available %d, requested %d",
		e.MaterialID, e.Available, e.Requested)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError is returned when the request was built against state that has
// since changed, or would break a uniqueness or reference constraint.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func Conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInsufficientStock(err error) bool {
	var e *InsufficientStockError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// Kind names the error class; used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case IsInsufficientStock(err):
		return "insufficient_stock"
	case IsValidation(err):
		return "validation"
	case IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
