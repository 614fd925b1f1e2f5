package shared

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeValidation     ErrorCode = "validation"
	ErrorCodeAuthentication ErrorCode = "authentication"
	ErrorCodeConflict       ErrorCode = "conflict"
	ErrorCodeNotFound       ErrorCode = "not_found"
	ErrorCodeConfiguration  ErrorCode = "configuration"
	ErrorCodeTransient      ErrorCode = "transient"
	ErrorCodeFatalOperator  ErrorCode = "fatal_operator"
	ErrorCodeInternal       ErrorCode = "internal"
)

// Error is the typed error returned across package boundaries. Validation,
// authentication and conflict errors are terminal for the caller; transient
// errors are retried by the next anchoring tick; fatal operator errors mean
// queued readings may have been lost and need a human.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "device anchor error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewValidationError(message string) error {
	return &Error{Code: ErrorCodeValidation, Message: message}
}

func NewAuthenticationError(message string) error {
	return &Error{Code: ErrorCodeAuthentication, Message: message}
}

func NewConflictError(message string) error {
	return &Error{Code: ErrorCodeConflict, Message: message}
}

func NewNotFoundError(message string) error {
	return &Error{Code: ErrorCodeNotFound, Message: message}
}

func NewConfigurationError(message string, cause error) error {
	return &Error{Code: ErrorCodeConfiguration, Message: message, Cause: cause}
}

func NewTransientError(message string, cause error) error {
	return &Error{Code: ErrorCodeTransient, Message: message, Cause: cause}
}

func NewFatalOperatorError(message string, cause error) error {
	return &Error{Code: ErrorCodeFatalOperator, Message: message, Cause: cause}
}

// CodeOf returns the code of the outermost typed error in the chain, or
// ErrorCodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) && typed != nil {
		return typed.Code
	}
	return ErrorCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
