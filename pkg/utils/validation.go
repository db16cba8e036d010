package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate     = newValidator()
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{3,20}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// phone accepts the loosely formatted numbers people type into forms
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		if !phonePattern.MatchString(value) {
			return false
		}
		digits := 0
		for _, r := range value {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		return digits >= 3
	})
	return v
}

// ValidateStruct validates a struct based on its validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateVar validates a single value against a tag expression
func ValidateVar(field interface{}, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatFieldError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	if field == "" {
		field = "value"
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries or characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries or characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "phone":
		return fmt.Sprintf("%s must be a phone number", field)
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid %s", field, e.Tag())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
