package errors

import (
	"errors"
	"fmt"
)

// kindError is a sentinel that also matches the category it belongs to.
type kindError struct {
	msg      string
	category error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.category }

func newKind(category error, msg string) error {
	return &kindError{msg: msg, category: category}
}

// Error categories. Every kind below matches exactly one of these via errors.Is.
var (
	ErrValidation  = errors.New("validation error")  // Rejected before any side effect
	ErrNotFound    = errors.New("not found")         // Lookup miss
	ErrPersistence = errors.New("persistence error") // Store-side failure, cause attached
	ErrScheduling  = errors.New("scheduling error")  // Notification-side failure
)

// Custom application errors
var (
	ErrInvalidName      = newKind(ErrValidation, "reminder name cannot be empty")
	ErrInvalidAction    = newKind(ErrValidation, "invalid notification action")
	ErrInvalidTimeOfDay = newKind(ErrValidation, "time must be HH:MM")
	ErrInvalidQuery     = newKind(ErrValidation, "invalid list query")
	ErrReminderNotFound = newKind(ErrNotFound, "reminder not found")
	ErrSaveFailed       = newKind(ErrPersistence, "failed to save reminder")
	ErrFetchFailed      = newKind(ErrPersistence, "failed to fetch reminders")
	ErrDeleteFailed     = newKind(ErrPersistence, "failed to delete reminder")
	ErrPermissionDenied = newKind(ErrScheduling, "notification permission denied")
	ErrInvalidTime      = newKind(ErrScheduling, "invalid notification time")
	ErrSchedulingFailed = newKind(ErrScheduling, "failed to schedule notification")
)

// Wrap attaches cause to kind. Both remain visible to errors.Is.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// SchedulingFailed reports a delivery-service failure with a reason.
func SchedulingFailed(reason string) error {
	return fmt.Errorf("%w: %s", ErrSchedulingFailed, reason)
}
