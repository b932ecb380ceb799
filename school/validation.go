package school

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/melmanss/gpa"
)

var validate = validator.New()

// validateStruct runs the struct's validate tags and reports failures as gpa validation errors.
func validateStruct(entity interface{}) error {
	err := validate.Struct(entity)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return gpa.NewErrorWithCause(gpa.ErrorTypeValidation, "validation failed", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatValidationError(fe))
	}
	return gpa.NewErrorWithCause(gpa.ErrorTypeValidation, strings.Join(msgs, "; "), err)
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Namespace() + " is required"
	case "email":
		return e.Namespace() + " must be a valid email address"
	case "max":
		return e.Namespace() + " must be at most " + e.Param()
	default:
		return e.Namespace() + " validation failed: " + e.Tag()
	}
}
