package gpa

import (
	"errors"
	"fmt"
	"testing"
)

func TestGPAErrorError(t *testing.T) {
	err := GPAError{
		Type:    ErrorTypeNotFound,
		Message: "student not found",
	}

	expected := "not_found: student not found"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestGPAErrorWithCause(t *testing.T) {
	cause := errors.New("database connection failed")
	err := NewErrorWithCause(ErrorTypeConnection, "failed to connect", cause)

	if err.Unwrap() != cause {
		t.Error("Expected unwrapped error to match original cause")
	}

	expectedMsg := "connection: failed to connect (caused by: database connection failed)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestGPAErrorIs(t *testing.T) {
	err1 := GPAError{Type: ErrorTypeValidation, Message: "validation error"}
	err2 := GPAError{Type: ErrorTypeValidation, Message: "different validation error"}
	err3 := GPAError{Type: ErrorTypeNotFound, Message: "not found error"}

	if !errors.Is(err1, err2) {
		t.Error("Expected errors with same type to be equal")
	}
	if errors.Is(err1, err3) {
		t.Error("Expected errors with different types to not be equal")
	}
	if errors.Is(err1, errors.New("validation")) {
		t.Error("Expected plain errors to never match")
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		typ   ErrorType
	}{
		{"not found", IsNotFound, ErrorTypeNotFound},
		{"duplicate", IsDuplicate, ErrorTypeDuplicate},
		{"validation", IsValidation, ErrorTypeValidation},
		{"connection", IsConnection, ErrorTypeConnection},
		{"transaction", IsTransaction, ErrorTypeTransaction},
		{"persistence", IsPersistence, ErrorTypePersistence},
		{"invalid argument", IsInvalidArgument, ErrorTypeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(NewError(tt.typ, "x")) {
				t.Errorf("Expected predicate to match %s", tt.typ)
			}
			if tt.check(NewError(ErrorTypeInternal, "x")) {
				t.Errorf("Expected predicate not to match internal")
			}
			if tt.check(nil) {
				t.Errorf("Expected predicate not to match nil")
			}
			if tt.check(errors.New("plain")) {
				t.Errorf("Expected predicate not to match a plain error")
			}
		})
	}
}

func TestChainedErrors(t *testing.T) {
	root := NewError(ErrorTypeDuplicate, "duplicate key violation")
	wrapped := NewErrorWithCause(ErrorTypePersistence, "error saving student", root)
	chained := fmt.Errorf("demo: %w", wrapped)

	if !IsPersistence(chained) {
		t.Error("Expected persistence to be found through fmt wrapping")
	}
	if !IsDuplicate(chained) {
		t.Error("Expected the duplicate cause to be found through the persistence wrapper")
	}
	if IsNotFound(chained) {
		t.Error("Expected not found to be absent from the chain")
	}
}

func TestPersistenceFailure(t *testing.T) {
	if persistenceFailure("saving", nil) != nil {
		t.Error("Expected nil for nil error")
	}

	for _, passthrough := range []error{
		NewError(ErrorTypeValidation, "bad"),
		NewError(ErrorTypeInvalidArgument, "bad"),
		NewError(ErrorTypePersistence, "already wrapped"),
	} {
		if got := persistenceFailure("saving", passthrough); got != passthrough {
			t.Errorf("Expected %v to pass through, got %v", passthrough, got)
		}
	}

	cause := NewError(ErrorTypeConstraint, "constraint violation")
	got := persistenceFailure("saving student", cause)
	if !IsPersistence(got) || !IsErrorType(got, ErrorTypeConstraint) {
		t.Errorf("Expected persistence failure caused by constraint, got %v", got)
	}
	if got.Error() != "persistence: error saving student (caused by: constraint: constraint violation)" {
		t.Errorf("Unexpected message: %s", got.Error())
	}
}
