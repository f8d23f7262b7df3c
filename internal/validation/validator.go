// Package validation checks request payloads with validator/v10 and reports
// failures as VALIDATION_ERROR domain errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the recipe enum tags registered:
// category, region, visibility, permission and cooking_level.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).IsValid()
	})
	mustRegister(v, "region", func(fl validator.FieldLevel) bool {
		return domain.Region(fl.Field().String()).IsValid()
	})
	mustRegister(v, "visibility", func(fl validator.FieldLevel) bool {
		return domain.Visibility(fl.Field().String()).IsValid()
	})
	mustRegister(v, "permission", func(fl validator.FieldLevel) bool {
		return domain.Permission(fl.Field().String()).IsValid()
	})
	mustRegister(v, "cooking_level", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || domain.CookingLevel(s).IsValid()
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Email reports whether s is a syntactically valid address.
func (v *Validator) Email(s string) bool {
	return v.v.Var(s, "required,email") == nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

//nolint:gocyclo // one case per supported tag
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "category":
		return "must be a known category"
	case "region":
		return "must be a known region"
	case "visibility":
		return "must be one of: private shared public"
	case "permission":
		return "must be one of: view copy edit"
	case "cooking_level":
		return "must be one of: beginner intermediate advanced professional"
	default:
		return "is invalid"
	}
}
