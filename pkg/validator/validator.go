// Package validator wraps go-playground/validator with the tags used by
// report requests and renders failures as field/message pairs.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// paramNamePattern is a report parameter name, optionally prefixed with '@'.
// Spaces are allowed because catalog parameters are display labels.
var paramNamePattern = regexp.MustCompile(`^@?[\p{L}_][\p{L}\p{N}_ ]*$`)

// Validator validates request structs.
type Validator struct {
	validate *validator.Validate
}

// ValidationError is one failed field. Field uses the JSON name of each
// segment, e.g. "args[2].name".
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate when at least one field fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// New returns a Validator with the param_name and report_path tags
// registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	for tag, fn := range map[string]validator.Func{
		"param_name":  isParamName,
		"report_path": isReportPath,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validator: register %s: %v", tag, err))
		}
	}

	return &Validator{validate: v}
}

// Validate checks s and returns ValidationErrors for field failures. Other
// errors, such as a non-struct argument, are returned unchanged.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: fieldPath(fe), Message: message(fe)}
	}
	return out
}

// isParamName leaves empty values to "required".
func isParamName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || paramNamePattern.MatchString(s)
}

func isReportPath(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "param_name":
		return "must be a parameter name"
	case "report_path":
		return "must not contain control characters"
	}
	return "failed validation: " + fe.Tag()
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	_, rest, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return rest
}

// jsonName reports a field by its JSON name, or the snake_case Go name when
// it has no json tag.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return snakeCase(f.Name)
	}
	return name
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
