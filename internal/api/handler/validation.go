package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator, reporting fields by their JSON names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct returns field errors for s, or nil when it is valid.
func validateStruct(s interface{}) []models.FieldError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []models.FieldError{{Field: "", Message: err.Error(), Code: "INVALID"}}
	}

	out := make([]models.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, models.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
			Code:    fieldCode(fe.Tag()),
		})
	}
	return out
}

// fieldPath strips the root struct name: "ScanRequest.locations[0].name"
// becomes "locations[0].name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}

func fieldCode(tag string) string {
	switch tag {
	case "required":
		return "REQUIRED"
	case "latitude", "longitude", "gte", "min", "max":
		return "OUT_OF_RANGE"
	default:
		return "INVALID"
	}
}
