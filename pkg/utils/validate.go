package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so messages match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "The field '%s' is required.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"oneof":    "The field '%s' must be one of [%s].",
}

func fieldMessage(e validator.FieldError) string {
	msg, ok := fieldMessages[e.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, e.Field(), e.Param())
	}
	return fmt.Sprintf(msg, e.Field())
}

// ValidateStruct validates s and returns json field name -> message. Empty means valid.
func ValidateStruct(s any) map[string]string {
	out := map[string]string{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, e := range verrs {
		out[e.Field()] = fieldMessage(e)
	}
	return out
}
