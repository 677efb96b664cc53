// Package apperr holds the error taxonomy shared by the catalog manager,
// the handlers, and the response helpers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindNotFound
	KindReferentialConflict
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindReferentialConflict:
		return "referential_conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrDuplicate           = errors.New("duplicate error")
	ErrNotFound            = errors.New("not found error")
	ErrReferentialConflict = errors.New("referential conflict error")
	ErrStorage             = errors.New("storage error")
)

// Error carries a user-facing message. Message is safe to show to clients;
// Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrDuplicate:
		return e.Kind == KindDuplicate
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrReferentialConflict:
		return e.Kind == KindReferentialConflict
	case ErrStorage:
		return e.Kind == KindStorage
	}
	return false
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func Duplicate(msg string) *Error { return &Error{Kind: KindDuplicate, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func ReferentialConflict(msg string) *Error {
	return &Error{Kind: KindReferentialConflict, Message: msg}
}

// Storage wraps an unexpected database or object-store failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf reports the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// MessageOf returns the user-facing message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
