package feedkit

import (
	"errors"
	"fmt"
)

// Error represents a feedkit library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for feedkit operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeInvalidArgument indicates malformed input to a constructor or setter.
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"

	// ErrCodeNotFound indicates an extension name has no registered implementation.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeInvalidExtension indicates a resolved extension fails its capability contract.
	ErrCodeInvalidExtension = "INVALID_EXTENSION"

	// ErrCodeConfiguration indicates a required collaborator is missing or unusable.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeStorage indicates a subscription backend operation failed.
	ErrCodeStorage = "STORAGE_ERROR"

	// ErrCodeDelivery indicates a request to a hub failed.
	ErrCodeDelivery = "DELIVERY_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return IsCode(err, ErrCodeNoData)
}

// IsCode reports whether err (or any error it wraps) is a feedkit *Error with the given code.
// Every *Error in the chain is inspected, not only the outermost one.
func IsCode(err error, code string) bool {
	for err != nil {
		var feedErr *Error
		if !errors.As(err, &feedErr) {
			return false
		}
		if feedErr.Code == code {
			return true
		}
		err = feedErr.Err
	}
	return false
}
