package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when no resolved identity is
// present. Every store-touching operation refuses to run without one.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFoundOrForbidden covers both a missing record and an owner
// mismatch on update/delete. The two cases are deliberately not
// distinguishable by callers.
var ErrNotFoundOrForbidden = errors.New("bookmark not found")

// ValidationError reports malformed input caught before any network
// call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is enables errors.Is matching against the zero ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel for errors.Is checks.
var ErrValidation = ValidationError{}

// MutationFailedError wraps a failed remote create/update/delete.
// The cache has already been rolled back to its pre-mutation
// snapshot when one of these surfaces.
type MutationFailedError struct {
	Op    string // "create", "update" or "delete"
	Cause error
}

func (e MutationFailedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e MutationFailedError) Unwrap() error { return e.Cause }

func (e MutationFailedError) Is(target error) bool {
	_, ok := target.(MutationFailedError)
	if ok {
		return true
	}
	_, ok = target.(*MutationFailedError)
	return ok
}

// ErrMutationFailed is the sentinel for errors.Is checks.
var ErrMutationFailed = MutationFailedError{}

// QueryFailedError wraps a failed listing or count call. Cache state
// is left untouched; there is no optimistic query state to roll back.
type QueryFailedError struct {
	Cause error
}

func (e QueryFailedError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Cause)
}

func (e QueryFailedError) Unwrap() error { return e.Cause }

func (e QueryFailedError) Is(target error) bool {
	_, ok := target.(QueryFailedError)
	if ok {
		return true
	}
	_, ok = target.(*QueryFailedError)
	return ok
}

// ErrQueryFailed is the sentinel for errors.Is checks.
var ErrQueryFailed = QueryFailedError{}
