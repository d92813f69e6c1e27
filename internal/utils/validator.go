package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/account-service/internal/domain"
)

var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

// Validator runs struct validation and reports every failing field at once
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields by their json tag and
// knows the account-specific rules: notblank, digits and gender.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// passwords are hashed untrimmed, so blankness is checked here
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "gender", func(fl validator.FieldLevel) bool {
		return domain.Gender(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates s. On failure it returns a *domain.Error of kind
// InvalidInput whose details name each failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal("validation failed", err)
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fe.Field()+" "+formatFieldError(fe))
	}
	return domain.InvalidInput("validation failed", details...)
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "required_without":
		return "is required when " + param + " is not present"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + param + " characters long"
		}
		return "must be at least " + param
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + param + " characters long"
		}
		return "must be at most " + param
	case "timezone":
		return "must be a valid IANA timezone"
	case "digits":
		return "must contain digits only"
	case "gender":
		return "must be one of: Male, Female, Other"
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// NormalizeIdentifier trims and lowercases an email or a username
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
