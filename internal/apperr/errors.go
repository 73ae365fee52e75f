package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers of the conversation service.
type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindNotFound            Kind = "not_found"
	KindConversationBlocked Kind = "conversation_blocked"
	KindInvalidOfferState   Kind = "invalid_offer_state"
	KindValidation          Kind = "validation_error"
	KindConflict            Kind = "conflict"
	KindRateLimited         Kind = "rate_limited"
	KindInternal            Kind = "internal"
)

// Error is the structured error returned by the service layer.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthorized(msg string) error { return New(KindUnauthorized, msg) }

func NotFound(msg string) error { return New(KindNotFound, msg) }

func Blocked(msg string) error { return New(KindConversationBlocked, msg) }

func InvalidOfferState(msg string) error { return New(KindInvalidOfferState, msg) }

func Validation(msg string) error { return New(KindValidation, msg) }

func Conflict(msg string) error { return New(KindConflict, msg) }

func RateLimited(msg string) error { return New(KindRateLimited, msg) }

func Internal(cause error) error { return Wrap(KindInternal, "internal error", cause) }

// KindOf reports the kind of err, or KindInternal for anything unstructured.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message. Unstructured errors never leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
