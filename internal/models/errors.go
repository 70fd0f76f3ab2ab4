package models

import (
	"errors"
	"fmt"
)

// Error kinds for expected failure conditions. Callers match with
// errors.Is; these are results to check, not control flow.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPersistence     = errors.New("persistence failure")
)

// ValidationError reports input that fails a consistency check, such as a
// merge across differing addresses. No mutation happens when one is
// returned.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError reports an unknown listing, object or address id.
func NotFoundError(collection, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, collection, id)
}

// InvalidArgumentError reports a malformed request such as an empty
// selection or an unsupported evaluation kind.
func InvalidArgumentError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a store read/write failure. The engine surfaces
// these upward unmodified and never retries writes.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
