package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator reports fields by their json names so messages match the documents callers send
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and returns the first violation
// as a field-level ServiceError. prefix is prepended to the json path.
func validateStruct(v *validator.Validate, prefix string, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return validationError(prefix, invalid.Error())
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError(prefix, err.Error())
	}

	fe := fieldErrs[0]
	return validationError(fieldPath(prefix, fe.Namespace()), describeViolation(fe))
}

// fieldPath drops the root struct name validator puts in front of a namespace
func fieldPath(prefix, namespace string) string {
	path := namespace
	if i := strings.Index(namespace, "."); i >= 0 {
		path = namespace[i+1:]
	}
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is not set", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "url":
		return "must be a well-formed URL"
	case "email":
		return "must be a well-formed email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
