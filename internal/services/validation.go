package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// boundary validates request structs with the same `binding` tags gin uses,
// so calls that bypass HTTP get the same checks.
var boundary = newBoundaryValidator()

func newBoundaryValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct returns a ValidationError for the first failing field
func validateStruct(s any) error {
	err := boundary.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return pkgerrors.InvalidInputError(fe.Field(), reasonFor(fe))
	}
	return pkgerrors.InvalidInputError("request", err.Error())
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must not exceed " + fe.Param()
	default:
		return "is invalid"
	}
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.InvalidInputError(field, "is required")
	}
	return nil
}
