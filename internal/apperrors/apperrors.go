// Package apperrors defines FeedSpine's error taxonomy.
//
// Each AppError carries a Kind drawn from a closed set, a
// human-readable Message, optional Details, and an
// optional wrapped Cause. Sentinel errors for each kind are provided so
// callers can use errors.Is without depending on the concrete struct.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError. The set is closed and mirrors the failure
// taxonomy the core engine must distinguish between.
type Kind string

const (
	// KindInvalidCandidate marks a candidate validation failure (empty
	// key, malformed timestamp). The candidate is skipped; the adapter
	// that produced it is not aborted.
	KindInvalidCandidate Kind = "invalid_candidate"

	// KindDuplicateNaturalKey signals a storage-level race: two
	// concurrent inserts raced for the same natural key. Callers retry
	// the find-then-act path once.
	KindDuplicateNaturalKey Kind = "duplicate_natural_key"

	// KindInvalidPromotion marks a non-monotone layer transition. The
	// enricher that attempted it is skipped with a failed result; the
	// record is left unchanged.
	KindInvalidPromotion Kind = "invalid_promotion"

	// KindStorageError marks a storage I/O failure.
	KindStorageError Kind = "storage_error"

	// KindAdapterError marks a fetch/parse failure inside an adapter.
	KindAdapterError Kind = "adapter_error"

	// KindCancelled marks a user-initiated cancellation.
	KindCancelled Kind = "cancelled"

	// KindConfigError marks invalid configuration discovered at setup.
	KindConfigError Kind = "config_error"
)

// Sentinel errors, one per Kind, so that errors.Is(err, apperrors.ErrInvalidCandidate)
// works regardless of whether err is the sentinel itself or a *AppError
// wrapping it as Cause.
var (
	ErrInvalidCandidate    = errors.New("invalid candidate")
	ErrDuplicateNaturalKey = errors.New("duplicate natural key")
	ErrInvalidPromotion    = errors.New("invalid layer promotion")
	ErrStorageError        = errors.New("storage error")
	ErrAdapterError        = errors.New("adapter error")
	ErrCancelled           = errors.New("collection cancelled")
	ErrConfigError         = errors.New("invalid configuration")
)

var sentinelByKind = map[Kind]error{
	KindInvalidCandidate:    ErrInvalidCandidate,
	KindDuplicateNaturalKey: ErrDuplicateNaturalKey,
	KindInvalidPromotion:    ErrInvalidPromotion,
	KindStorageError:        ErrStorageError,
	KindAdapterError:        ErrAdapterError,
	KindCancelled:           ErrCancelled,
	KindConfigError:         ErrConfigError,
}

// AppError is a structured, wrapped error carrying a taxonomy Kind.
type AppError struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

// New creates an AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Newf creates an AppError of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an AppError of the given kind wrapping cause.
func Wrap(cause error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// Wrapf creates an AppError of the given kind wrapping cause with a
// formatted message.
func Wrapf(cause error, kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithDetails sets Details and returns the receiver for chaining.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf sets a formatted Details string and returns the receiver.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any, so errors.Is/As traverse it.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel error for e's Kind, so
// errors.Is(appErr, apperrors.ErrStorageError) works without unwrapping
// to a concrete Cause.
func (e *AppError) Is(target error) bool {
	sentinel, ok := sentinelByKind[e.Kind]
	return ok && target == sentinel
}

// KindOf extracts the Kind from err if it is an *AppError, reporting ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}
