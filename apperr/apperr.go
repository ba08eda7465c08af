package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotEnrolled        Kind = "not_enrolled"
	KindAlreadyEnrolled    Kind = "already_enrolled"
	KindCourseNotAvailable Kind = "course_not_available"
	KindNotFound           Kind = "not_found"
	KindMalformedHeader    Kind = "malformed_header"
	KindInvalidSignature   Kind = "invalid_signature"
	KindTokenExpired       Kind = "token_expired"
	KindValidation         Kind = "validation_failure"
	KindUnauthenticated    Kind = "unauthenticated"
	KindForbidden          Kind = "forbidden"
	KindInternal           Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so wrapped errors compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotEnrolled        = &Error{Kind: KindNotEnrolled, Message: "You must be enrolled in this course"}
	ErrAlreadyEnrolled    = &Error{Kind: KindAlreadyEnrolled, Message: "You are already enrolled in this course"}
	ErrCourseNotAvailable = &Error{Kind: KindCourseNotAvailable, Message: "Course not found or not published"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Resource not found"}
	ErrMalformedHeader    = &Error{Kind: KindMalformedHeader, Message: "Missing or malformed Authorization header"}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature, Message: "Invalid token"}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Message: "Token expired"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "Unauthenticated"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "Forbidden"}
)

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func ValidationField(field, message string) *Error {
	return Validation(map[string]string{field: message})
}

// Wrap attaches a cause to a sentinel while keeping its kind and message.
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Fields: sentinel.Fields, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsAuthFailure reports whether err is one of the authentication failure kinds.
func IsAuthFailure(err error) bool {
	switch KindOf(err) {
	case KindMalformedHeader, KindInvalidSignature, KindTokenExpired, KindUnauthenticated:
		return true
	}
	return false
}

func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindCourseNotAvailable:
		return http.StatusNotFound
	case KindNotEnrolled, KindForbidden:
		return http.StatusForbidden
	case KindAlreadyEnrolled, KindValidation:
		return http.StatusBadRequest
	case KindMalformedHeader, KindInvalidSignature, KindTokenExpired, KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
