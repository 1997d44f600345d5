// Package validate wraps go-playground/validator with the form rules the
// dashboard needs and turns validation failures into user-facing messages.
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// New returns a validator with the custom "within" and "timeslot" tags
// registered.
//
// within=MIN~MAX checks that a numeric string lies in [MIN, MAX]. Empty
// strings pass so the tag composes with omitempty and required. timeslot
// accepts the names in domain.SprayTimeSlots.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("within", within); err != nil {
		panic(fmt.Sprintf("register within: %v", err))
	}
	if err := v.RegisterValidation("timeslot", timeslot); err != nil {
		panic(fmt.Sprintf("register timeslot: %v", err))
	}
	return v
}

func within(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	lo, hi, ok := parseRange(fl.Param())
	if !ok {
		return false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	return v >= lo && v <= hi
}

func timeslot(fl validator.FieldLevel) bool {
	return domain.IsSprayTimeSlot(fl.Field().String())
}

func parseRange(param string) (float64, float64, bool) {
	a, b, ok := strings.Cut(param, "~")
	if !ok {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(a, 64)
	hi, err2 := strconv.ParseFloat(b, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// Messages flattens a validation error into one message per failing field.
// Non-validation errors produce a single message with the error text.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "numeric":
		return field + " must be a number"
	case "timeslot":
		return field + " must be one of: " + strings.Join(domain.SprayTimeSlots, ", ")
	case "email":
		return field + " must be a valid email address"
	case "within":
		lo, hi, _ := parseRange(fe.Param())
		return fmt.Sprintf("%s must be between %g and %g", field, lo, hi)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
