package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var validate *playground.Validate

func init() {
	validate = playground.New(playground.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("lat", func(fl playground.FieldLevel) bool {
		return IsValidLatitude(fl.Field().Float())
	})
	validate.RegisterValidation("lng", func(fl playground.FieldLevel) bool {
		return IsValidLongitude(fl.Field().Float())
	})
	validate.RegisterValidation("hhmm", func(fl playground.FieldLevel) bool {
		return IsValidClock(fl.Field().String())
	})
	validate.RegisterValidation("weekday", func(fl playground.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	})
	validate.RegisterValidation("uuid7", func(fl playground.FieldLevel) bool {
		return IsValidUUID(fl.Field().String())
	})
}

// Struct runs the struct tag rules on s and returns the failures as ValidationErrors.
// It returns nil when s is valid.
func Struct(s any) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return errs
}

// fieldPath drops the root struct name: "CreateZoneRequest.polygon_coordinates[0].lat" -> "polygon_coordinates[0].lat".
func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "lat":
		return "latitude must be between -90 and 90"
	case "lng":
		return "longitude must be between -180 and 180"
	case "hhmm":
		return fmt.Sprintf("%s must use HH:MM format", field)
	case "weekday":
		return "day must be between 0 (Sunday) and 6 (Saturday)"
	case "uuid7", "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "datetime":
		return fmt.Sprintf("%s must use %s format", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
