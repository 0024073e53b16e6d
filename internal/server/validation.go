package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

type credentialsPayload struct {
	Username string `json:"username" validate:"required,max=40"`
	Password string `json:"password" validate:"required"`
}

type saveEvaluationPayload struct {
	PuzzleID   int    `json:"puzzleId" validate:"required,min=1,max=1128"`
	Evaluation string `json:"evaluation" validate:"required,oneof=failed partial solved"`
}

// validationDetails renders validator errors as one readable line.
func validationDetails(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}
	var details strings.Builder
	for _, fieldErr := range validationErrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fieldErr.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", fieldErr.Field()))
		case "oneof":
			details.WriteString(fmt.Sprintf("%s must be one of [%s]", fieldErr.Field(), fieldErr.Param()))
		case "min":
			if fieldErr.Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", fieldErr.Field(), fieldErr.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", fieldErr.Field(), fieldErr.Param()))
			}
		case "max":
			if fieldErr.Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", fieldErr.Field(), fieldErr.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", fieldErr.Field(), fieldErr.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	return details.String()
}

// hasTag reports whether err is a validation failure of field on tag.
func hasTag(err error, field, tag string) bool {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return false
	}
	for _, fieldErr := range validationErrs {
		if fieldErr.Field() == field && fieldErr.Tag() == tag {
			return true
		}
	}
	return false
}
