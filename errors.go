package gpa

import (
	"errors"
	"fmt"
)

// =====================================
// Error Handling
// =====================================

// GPAError represents a GPA-specific error
type GPAError struct {
	Type    ErrorType
	Message string
	Cause   error
	Code    string
}

// Error implements the error interface
func (e GPAError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e GPAError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e GPAError) Is(target error) bool {
	if targetGPAError, ok := target.(GPAError); ok {
		return e.Type == targetGPAError.Type
	}
	return false
}

// NewError creates a new GPAError
func NewError(errorType ErrorType, message string) GPAError {
	return GPAError{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a new GPAError with a cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) GPAError {
	return GPAError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsErrorType reports whether err, or any error it wraps, is a GPAError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, GPAError{Type: errorType})
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsDuplicate checks if an error is a "duplicate" error
func IsDuplicate(err error) bool {
	return IsErrorType(err, ErrorTypeDuplicate)
}

// IsValidation checks if an error is a "validation" error
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsConnection checks if an error is a "connection" error
func IsConnection(err error) bool {
	return IsErrorType(err, ErrorTypeConnection)
}

// IsTransaction checks if an error is a "transaction" error
func IsTransaction(err error) bool {
	return IsErrorType(err, ErrorTypeTransaction)
}

// IsPersistence checks if an error is a failed write that was rolled back
func IsPersistence(err error) bool {
	return IsErrorType(err, ErrorTypePersistence)
}

// IsInvalidArgument checks if an error is a caller-contract violation
func IsInvalidArgument(err error) bool {
	return IsErrorType(err, ErrorTypeInvalidArgument)
}

// persistenceFailure wraps a store fault raised inside a write transaction.
// Caller-side errors (validation, invalid argument) are returned as they are.
func persistenceFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsInvalidArgument(err) || IsPersistence(err) {
		return err
	}
	return GPAError{
		Type:    ErrorTypePersistence,
		Message: fmt.Sprintf("error %s", op),
		Cause:   err,
	}
}
