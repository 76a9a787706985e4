package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	// labelPattern accepts skill labels and fault tree node ids
	labelPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_./-]*$`)
)

// MaxLabelLength bounds skill labels and node ids
const MaxLabelLength = 128

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("label", func(fl validator.FieldLevel) bool {
		return IsLabel(fl.Field().String())
	})
}

// IsLabel reports whether s is usable as a skill label or node id
func IsLabel(s string) bool {
	return len(s) > 0 && len(s) <= MaxLabelLength && labelPattern.MatchString(s)
}

// Struct validates v against its `validate` tags and returns the first
// violation in a readable form
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

// Var validates a single value against a tag expression
func Var(field string, v any, tag string) error {
	if err := validate.Var(v, tag); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return describe(field, ve[0])
		}
		return err
	}
	return nil
}

func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	return describe(ve[0].Field(), ve[0])
}

func describe(field string, e validator.FieldError) error {
	param := e.Param()
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min", "gte":
		return fmt.Errorf("%s: must be at least %s, got %v", field, param, e.Value())
	case "max", "lte":
		return fmt.Errorf("%s: must not exceed %s, got %v", field, param, e.Value())
	case "gt":
		return fmt.Errorf("%s: must be greater than %s, got %v", field, param, e.Value())
	case "gtefield":
		return fmt.Errorf("%s: must not be less than %s", field, param)
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got %v", field, strings.ReplaceAll(param, " ", ", "), e.Value())
	case "label":
		return fmt.Errorf("%s: %q is not a valid label", field, e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
