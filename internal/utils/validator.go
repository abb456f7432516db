// internal/utils/validator.go
package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Violation is a single failed constraint.
type Violation struct {
	Field   string `json:"field"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// Constrained is implemented by types that can describe their own constraint
// violations (cross-field rules, enum membership, content checks).
type Constrained interface {
	Constraints() []Violation
}

// ValidationError carries every violation found on one object.
type ValidationError struct {
	TypeName   string      `json:"type"`
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.TypeName, strings.Join(e.Messages(), "; "))
}

// Messages returns one message per violated constraint.
func (e *ValidationError) Messages() []string {
	messages := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		messages[i] = v.Message
	}
	return messages
}

// ObjectValidator runs struct tag rules and the Constrained capability and
// reports all violations at once.
type ObjectValidator struct {
	validate *validator.Validate
}

func NewObjectValidator() *ObjectValidator {
	v := validator.New()
	v.RegisterValidation("strong_password", validateStrongPassword)
	v.RegisterValidation("username", validateUsername)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return &ObjectValidator{validate: v}
}

// Validate returns a *ValidationError when obj violates at least one constraint.
func (v *ObjectValidator) Validate(obj interface{}) error {
	if obj == nil || isNilPointer(obj) {
		return &ValidationError{
			TypeName:   typeName(obj),
			Violations: []Violation{{Field: "", Tag: "required", Message: "object is required"}},
		}
	}

	var violations []Violation

	if isStruct(obj) {
		if err := v.validate.Struct(obj); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return fmt.Errorf("validate %s: %w", typeName(obj), err)
			}
			for _, e := range fieldErrs {
				violations = append(violations, Violation{
					Field:   e.Field(),
					Tag:     e.Tag(),
					Message: getValidationMessage(e),
				})
			}
		}
	}

	if c, ok := obj.(Constrained); ok {
		violations = append(violations, c.Constraints()...)
	}

	if len(violations) == 0 {
		return nil
	}

	return &ValidationError{TypeName: typeName(obj), Violations: violations}
}

func isStruct(obj interface{}) bool {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func isNilPointer(obj interface{}) bool {
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func typeName(obj interface{}) string {
	if obj == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

var usernamePattern = regexp.MustCompile("^[a-zA-Z0-9_]+$")

func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()

	// Username should be alphanumeric and underscores, 3-50 characters
	if len(username) < 3 || len(username) > 50 {
		return false
	}

	return usernamePattern.MatchString(username)
}

// GetValidationErrors flattens a validation failure into response details.
func GetValidationErrors(err error) []Violation {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Violations
	}
	return nil
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "e164":
		return e.Field() + " must be a phone number in international format"
	case "strong_password":
		return "Password must contain at least 8 characters with uppercase, lowercase, number, and special character"
	case "username":
		return "Username must be 3-50 characters and contain only letters, numbers, and underscores"
	default:
		return e.Field() + " is invalid"
	}
}
