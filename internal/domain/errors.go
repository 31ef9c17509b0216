package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown ids and cross-tenant access alike.
	ErrNotFound = errors.New("floor plan not found or you do not have permission to access it")
	// ErrConflict is returned when a higher-priority concurrent edit won.
	ErrConflict = errors.New("conflict detected with a higher-priority update")
	// ErrValidation marks a malformed request.
	ErrValidation = errors.New("validation error")
	// ErrTransientStore tags store failures that may succeed on retry.
	ErrTransientStore = errors.New("transient store failure")
	// ErrNoBackup is returned by restore when no readable snapshot exists.
	ErrNoBackup = errors.New("no backup snapshots available for this floor plan")
	// ErrSlotTaken is returned when a booking overlaps an existing one.
	ErrSlotTaken = errors.New("room is no longer available for the selected time slot")
)

// ConflictError carries the resolver's reason for rejecting an edit.
type ConflictError struct {
	Reason    string
	PriorRole Role
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewValidationError formats a message wrapped in ErrValidation.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
