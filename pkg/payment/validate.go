package payment

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"momogate/internal/apperr"
)

// paymentRules mirrors the PaymentRequest fields the gateway cares about.
type paymentRules struct {
	Amount      decimal.Decimal `validate:"gt=0"`
	PhoneNumber string          `validate:"required,msisdn"`
}

type requestValidator struct {
	validate    *validator.Validate
	countryCode string
}

func newRequestValidator(countryCode string) (*requestValidator, error) {
	phone, err := regexp.Compile(`^` + regexp.QuoteMeta(countryCode) + `\d{9}$`)
	if err != nil {
		return nil, err
	}
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	if err := v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return phone.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return &requestValidator{validate: v, countryCode: countryCode}, nil
}

// Check returns a validation error listing every rule req violates, or nil.
func (rv *requestValidator) Check(req PaymentRequest) error {
	err := rv.validate.Struct(paymentRules{Amount: req.Amount, PhoneNumber: req.PhoneNumber})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal("payment validation failed", err)
	}
	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, rv.message(fe.Field()))
	}
	return apperr.Validation("Invalid payment data", violations...)
}

func (rv *requestValidator) message(field string) string {
	switch field {
	case "Amount":
		return "Amount must be a positive number"
	case "PhoneNumber":
		return fmt.Sprintf("Phone number must be in format %sXXXXXXXXX (%d digits total)", rv.countryCode, len(rv.countryCode)+9)
	default:
		return field + " is invalid"
	}
}
