// Package validation adapts go-playground/validator struct-tag validation
// into the AppError taxonomy used at the HTTP boundary.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/faxsign/faxsign/internal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` tags and flattens the result
// into a single 400 AppError with per-field details.
func Struct(v interface{}) *internal.AppError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	details := make([]internal.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, internal.ValidationError{
			Field:   fieldName(fe),
			Message: message(fe),
			Code:    string(internal.ErrCodeValidationFailed),
		})
	}

	return internal.NewValidationError("validation failed", internal.ErrCodeValidationFailed).
		WithDetails(internal.ValidationErrors{Errors: details})
}

func fieldName(fe validator.FieldError) string {
	// StructNamespace looks like "UploadDTO.FaxNumber"; report only the
	// leaf field, snake_cased to match the JSON payload.
	parts := strings.Split(fe.StructNamespace(), ".")
	return toSnake(parts[len(parts)-1])
}

func message(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
