// Package handlers contains application use case handlers.
package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/services"
)

// requestValidate is the validator instance shared by all request types.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json names.
	requestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	for tag, fn := range customValidations {
		mustRegister(requestValidate, tag, fn)
	}
}

// customValidations maps the custom validate tags to their checks.
var customValidations = map[string]validator.Func{
	"sex": parses(func(s string) error {
		_, err := entities.ParseSex(s)
		return err
	}),
	"parentkind": parses(func(s string) error {
		_, err := entities.ParseParentKind(s)
		return err
	}),
	"uniontype": parses(func(s string) error {
		_, err := entities.ParseUnionType(s)
		return err
	}),
	"fuzzydate": parses(func(s string) error {
		_, err := entities.ParseFuzzyDate(s)
		return err
	}),
	"treemode": parses(func(s string) error {
		_, err := services.ParseHierarchyMode(s)
		return err
	}),
}

// mustRegister registers a custom tag and panics if the validator refuses it.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering validation %q: %v", tag, err))
	}
}

// parses adapts a string parser into a field validator.
func parses(parse func(string) error) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return parse(fl.Field().String()) == nil
	}
}

// validateRequest checks req against its validate tags and reports
// failures as a validation error naming every offending field.
func validateRequest(req any) error {
	err := requestValidate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return entities.NewValidationError("invalid request: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return entities.NewValidationError("invalid request: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "sex":
		return fmt.Sprintf("%s %q is not one of male, female, unknown", field, fe.Value())
	case "parentkind":
		return fmt.Sprintf("%s %q is not one of %s", field, fe.Value(), strings.Join(entities.ValidParentKinds, ", "))
	case "uniontype":
		return fmt.Sprintf("%s %q is not a known union type", field, fe.Value())
	case "fuzzydate":
		return fmt.Sprintf("%s %q is not a date (use YYYY-MM-DD, YYYY or ~YYYY)", field, fe.Value())
	case "treemode":
		return fmt.Sprintf("%s %q is not one of pedigree, descendants, hourglass", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// mustFuzzyDate parses a date that already passed the fuzzydate tag.
func mustFuzzyDate(s string) *entities.FuzzyDate {
	d, _ := entities.ParseFuzzyDate(s)
	return d
}
