// Package validation checks request payloads before any side effect runs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"account_service/internal/model"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the list of field errors for one payload.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the names of the rejected fields in order.
func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for _, fe := range e {
		names = append(names, fe.Field)
	}
	return names
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("simplepwd", func(fl validator.FieldLevel) bool {
		return !TooSimple(fl.Field().String())
	})
	_ = v.RegisterValidation("b64len", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) > 0 && len(s)%4 == 0
	})
	return v
}

// TooSimple reports whether fewer than half of the password's characters are
// distinct.
func TooSimple(password string) bool {
	runes := []rune(password)
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		seen[r] = struct{}{}
	}
	return len(seen) < len(runes)/2
}

// ValidateCreate checks a registration payload.
func ValidateCreate(req model.CreateUserRequest) error {
	return check(req)
}

// ValidateUpdate checks a self-update payload. An empty payload is valid
// here; callers decide what "nothing to update" means.
func ValidateUpdate(req model.UpdateUserRequest) error {
	return check(req)
}

// ValidateLogin checks the token form.
func ValidateLogin(form model.LoginForm) error {
	return check(form)
}

func check(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "simplepwd":
		return "password is too simple"
	case "b64len":
		return "avatar is invalid"
	case "eq":
		return fmt.Sprintf("must be %q", fe.Param())
	default:
		return "invalid value"
	}
}
