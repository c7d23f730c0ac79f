package apperr

import "fmt"

// ValidationError reports malformed or logically inconsistent input,
// such as a bad time ordering or an empty weekly-day set.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s (%v): %s", e.Field, e.Value, e.Reason)
}

// NotFoundError reports an operation against a nonexistent record.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InvalidTransitionError reports an illegal status move, such as leaving
// a terminal state.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// StorageError wraps an underlying persistence failure. Callers should
// retry or surface it, never silently swallow.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
