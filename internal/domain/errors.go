package domain

import (
	"errors"
	"fmt"
)

// Code classifies an application error for transport mapping.
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
)

// AppError is the error type surfaced by services and stores. Details carries
// structured context for the client, e.g. the list of invalid user ids.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Invalid(message string) error {
	return New(CodeInvalidArgument, message)
}

// InvalidWithDetails builds a validation error carrying structured detail,
// such as the ids that failed directory lookup.
func InvalidWithDetails(message string, details any) error {
	return &AppError{Code: CodeInvalidArgument, Message: message, Details: details}
}

func NotFound(message string) error {
	return New(CodeNotFound, message)
}

func AlreadyExists(message string) error {
	return New(CodeAlreadyExists, message)
}

func Forbidden(message string) error {
	return New(CodePermissionDenied, message)
}

func Unauthenticated(message string) error {
	return New(CodeUnauthenticated, message)
}

// Persistence wraps a failed store transaction.
func Persistence(message string, cause error) error {
	return Wrap(CodeInternal, message, cause)
}

// CodeOf extracts the classification of err, defaulting to CodeInternal for
// unclassified failures (driver errors, broken connections).
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
