package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies coordinator errors independently of any transport.
// Handlers map kinds to status codes at the HTTP edge; internal code never
// deals in HTTP codes.
type ErrorKind string

const (
	// KindValidation indicates missing or invalid input.
	KindValidation ErrorKind = "validation"
	// KindNotFound indicates an entity lookup by id came up empty.
	KindNotFound ErrorKind = "not_found"
	// KindConflict indicates a lease mismatch, a unique-link collision,
	// or a re-submit after a terminal state.
	KindConflict ErrorKind = "conflict"
	// KindRateLimited indicates a provider or coordinator rate-limit trip.
	KindRateLimited ErrorKind = "rate_limited"
	// KindProviderTransient indicates a retryable upstream model or
	// vector-store error.
	KindProviderTransient ErrorKind = "provider_transient"
	// KindProviderFatal indicates auth, content-filter, or unknown-model
	// errors that must not be retried.
	KindProviderFatal ErrorKind = "provider_fatal"
	// KindInternal indicates an unexpected failure.
	KindInternal ErrorKind = "internal"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrConflict indicates a lease mismatch or concurrent-claim loss
	ErrConflict = errors.New("conflict")

	// ErrAlreadyLocked indicates a claim attempt on an article whose lease
	// is held by another worker
	ErrAlreadyLocked = errors.New("article already locked")

	// ErrLeaseMismatch indicates a result submission from a worker that is
	// not the current lease-holder
	ErrLeaseMismatch = errors.New("lease held by another crawler")

	// ErrDuplicateLink indicates an article insert collided on its link
	ErrDuplicateLink = errors.New("article link already exists")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// KindError attaches an ErrorKind to an underlying error.
type KindError struct {
	Kind ErrorKind
	Err  error
}

// Error returns the wrapped error message prefixed with its kind.
func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *KindError) Unwrap() error { return e.Err }

// NewKindError wraps err with the given kind.
func NewKindError(kind ErrorKind, err error) *KindError {
	return &KindError{Kind: kind, Err: err}
}

// KindOf resolves the ErrorKind of an arbitrary error.
// Sentinels and ValidationError map to their natural kinds; everything
// unclassified is internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyLocked),
		errors.Is(err, ErrLeaseMismatch),
		errors.Is(err, ErrDuplicateLink):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	}
	return KindInternal
}

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
