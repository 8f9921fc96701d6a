// Package validation checks request structs and reports failures as ErrInvalidData.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.InvalidDataError("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return domain.InvalidDataError("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "nefield":
		return fe.Field() + " must differ from " + fe.Param()
	case "gtfield":
		return fe.Field() + " must be after " + fe.Param()
	case "gtefield":
		return fe.Field() + " must not be before " + fe.Param()
	default:
		if fe.Param() != "" {
			return fe.Field() + " failed " + fe.Tag() + "=" + fe.Param()
		}
		return fe.Field() + " failed " + fe.Tag()
	}
}
