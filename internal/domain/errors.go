package domain

import "fmt"

// Error codes surfaced to API callers.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeCheckinExists = "CHECKIN_EXISTS"
	CodeReference     = "REFERENCE_ERROR"
	CodeInternal      = "INTERNAL_SERVER_ERROR"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError is returned when input is rejected before anything is written.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return "validation failed"
	}
	return e.Reason
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// ConflictError is returned when the current state forbids the operation.
// Code narrows the conflict for callers, e.g. CodeCheckinExists.
type ConflictError struct {
	Code   string
	Reason string
}

func (e ConflictError) Error() string {
	if e.Reason == "" {
		return "conflict"
	}
	return e.Reason
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

var ErrConflict = ConflictError{}

// ErrCheckinExists guards course items that already have check-ins.
var ErrCheckinExists = ConflictError{
	Code:   CodeCheckinExists,
	Reason: "course item has check-ins and cannot be removed",
}

// ReferenceError is returned when a payload reference points at nothing.
type ReferenceError struct {
	Reason string
}

func (e ReferenceError) Error() string {
	if e.Reason == "" {
		return "invalid reference"
	}
	return e.Reason
}

func (e ReferenceError) Is(target error) bool {
	_, ok := target.(ReferenceError)
	if ok {
		return true
	}
	_, ok = target.(*ReferenceError)
	return ok
}

var ErrReference = ReferenceError{}
