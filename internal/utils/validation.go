package utils

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the `validate` tags on s.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationErrorResponse maps field errors to {field: tag}.
func ValidationErrorResponse(err error) APIResponse {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ErrorResponse("Invalid input", err.Error())
	}

	fields := make(map[string]string, len(ve))
	for _, fieldErr := range ve {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return APIResponse{
		Success:   false,
		Message:   "Validation failed",
		Error:     "validation_error",
		Errors:    fields,
		Timestamp: time.Now(),
	}
}
