package aggregates

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
)

// newInputValidator reports field errors under their json names.
func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput turns the first field error into a MISSING/INVALID reason.
func validateInput(v *validator.Validate, op string, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return domainagg.NewError(domainagg.CodeValidation, op, "MISSING "+fe.Field(), err)
		}
		return domainagg.NewError(domainagg.CodeValidation, op, "INVALID "+fe.Field(), err)
	}
	return domainagg.NewError(domainagg.CodeValidation, op, "INVALID INPUT", err)
}

func missing(op, field string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, "MISSING "+field, nil)
}

func invalid(op, field string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, "INVALID "+field, nil)
}

func rejected(op, reason string) error {
	return domainagg.NewError(domainagg.CodeInvariantViolation, op, reason, nil)
}

func denied(op string) error {
	return domainagg.NewError(domainagg.CodeAccessDenied, op, domainagg.ReasonAccessDenied, nil)
}

func notJoint(op string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, domainagg.ReasonNotJoint, nil)
}
