package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTableUnavailable  = errors.New("table unavailable")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrUnavailable       = errors.New("service temporarily unavailable")
	ErrRateLimited       = errors.New("rate limit exceeded")

	// Storage-level classifications.
	ErrTransient              = errors.New("transient storage failure")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicate              = errors.New("duplicate key")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type SlotUnavailableError struct {
	Date   string
	Time   string
	Reason string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot %s %s unavailable: %s", e.Date, e.Time, e.Reason)
}

func (e *SlotUnavailableError) Unwrap() error { return ErrSlotUnavailable }

type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// TableUnavailableError carries the table name so staff can be told which
// table is taken.
type TableUnavailableError struct {
	TableID   string
	TableName string
	Reason    string
}

func (e *TableUnavailableError) Error() string {
	name := e.TableName
	if name == "" {
		name = e.TableID
	}
	return fmt.Sprintf("table %s unavailable: %s", name, e.Reason)
}

func (e *TableUnavailableError) Unwrap() error { return ErrTableUnavailable }
