package domain

import (
	"errors"
	"fmt"
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

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	switch {
	case e.Field == "" && e.Reason == "":
		return "invalid input"
	case e.Field == "":
		return e.Reason
	case e.Reason == "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ForbiddenError is returned when the caller may not perform the operation.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return e.Reason
}

func (e ForbiddenError) Is(target error) bool {
	_, ok := target.(ForbiddenError)
	if ok {
		return true
	}
	_, ok = target.(*ForbiddenError)
	return ok
}

// ConflictError is returned when the request clashes with existing state.
type ConflictError struct {
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

var (
	// ErrNotFound is the sentinel error for missing resources.
	ErrNotFound = NotFoundError{}
	// ErrValidation matches every ValidationError.
	ErrValidation = ValidationError{}
	// ErrForbidden matches every ForbiddenError.
	ErrForbidden = ForbiddenError{}
	// ErrConflict matches every ConflictError.
	ErrConflict = ConflictError{}

	// ErrStaleWrite is reported by a store when a save lost a version race.
	ErrStaleWrite = errors.New("stale write: document was modified concurrently")
)
