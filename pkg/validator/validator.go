package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure with a stable
// machine-readable code.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// First returns the first failure, which callers surface when a single
// offending field is expected.
func (v ValidationErrors) First() (ValidationError, bool) {
	if len(v) == 0 {
		return ValidationError{}, false
	}
	return v[0], true
}

// ValidateStruct validates a struct using its declared rules, mapping each
// tag failure to a field-scoped code.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, translate(fe))
		}
		return failures
	}

	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func translate(fe validator.FieldError) ValidationError {
	field := fe.Field()
	upper := strings.ToUpper(field)

	switch fe.Tag() {
	case "required":
		return ValidationError{
			Field:   field,
			Code:    upper + "_REQUIRED",
			Message: field + " is required",
		}
	case "min":
		return ValidationError{
			Field:   field,
			Code:    upper + "_TOO_SHORT",
			Message: field + " must be at least " + fe.Param() + " characters",
		}
	case "max":
		return ValidationError{
			Field:   field,
			Code:    upper + "_TOO_LONG",
			Message: field + " must be no more than " + fe.Param() + " characters",
		}
	case "email":
		return ValidationError{
			Field:   field,
			Code:    upper + "_INVALID_FORMAT",
			Message: field + " must be a valid email address",
		}
	default:
		return ValidationError{
			Field:   field,
			Code:    upper + "_INVALID",
			Message: field + " failed on " + fe.Tag(),
		}
	}
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
