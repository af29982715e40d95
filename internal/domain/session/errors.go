package session

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// ValidationError lists the input fields that failed validation.
type ValidationError struct {
	Fields map[string]string

	order []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.order))
	for _, name := range e.order {
		parts = append(parts, e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func newValidationError(err error) *ValidationError {
	out := &ValidationError{Fields: make(map[string]string)}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Fields["_"] = err.Error()
		out.order = append(out.order, "_")
		return out
	}
	// Struct field order.
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
		out.order = append(out.order, fe.Field())
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldLabel(fe.Field()))
	case "email":
		return "email is not a valid address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fieldLabel(fe.Field()), fe.Param())
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid", fieldLabel(fe.Field()))
	}
}

// fieldLabel turns a Go field name into words: "OldPassword" -> "old password".
func fieldLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// DeniedError is returned by Guard.Require when access is not granted.
type DeniedError struct {
	Rule     Rule
	Decision Decision
}

func (e *DeniedError) Error() string {
	switch e.Decision {
	case Wait:
		return "session is still loading"
	case RedirectLogin:
		return "login required"
	default:
		return fmt.Sprintf("%s access required", e.Rule)
	}
}
