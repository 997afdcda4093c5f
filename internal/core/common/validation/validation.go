package validation

import (
	"fmt"

	errors "github.com/frahmantamala/freelance-payments/internal"
	"github.com/shopspring/decimal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) required() *errors.AppError {
	return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
}

// Required rejects empty strings, zero ids and nil pointers.
func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if v == "" {
				return fv.required()
			}
		case int64:
			if v == 0 {
				return fv.required()
			}
		case *string:
			if v == nil || *v == "" {
				return fv.required()
			}
		case *int64:
			if v == nil || *v == 0 {
				return fv.required()
			}
		case *decimal.Decimal:
			if v == nil {
				return fv.required()
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int64, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		var n int64
		switch v := value.(type) {
		case int64:
			n = v
		case *int64:
			if v == nil {
				return nil
			}
			n = *v
		default:
			return nil
		}
		if n < min {
			message := fmt.Sprintf("%s must be at least %d", fv.FieldName, min)
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func decimalValue(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	}
	return decimal.Decimal{}, false
}

func (fv *FieldValidator) PositiveDecimal() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if d, ok := decimalValue(value); ok && !d.IsPositive() {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be positive", fv.FieldName), errors.ErrCodeInvalidAmount)
		}
		return nil
	})
	return fv
}

// MaxDecimalPlaces rejects values that would lose precision when rounded to
// places fractional digits. Trailing zeros are fine: 499.000 passes for 2.
func (fv *FieldValidator) MaxDecimalPlaces(places int32) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if d, ok := decimalValue(value); ok && !d.Equal(d.Truncate(places)) {
			message := fmt.Sprintf("%s must have at most %d decimal places", fv.FieldName, places)
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeAmountPrecision)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxDecimal(max decimal.Decimal) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if d, ok := decimalValue(value); ok && d.GreaterThan(max) {
			message := fmt.Sprintf("%s must not exceed %s", fv.FieldName, max.String())
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeAmountTooHigh)
		}
		return nil
	})
	return fv
}

// Validate runs every rule of every field and folds the failures into one
// VALIDATION_FAILED error. A field stops at its first failing rule.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}

			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: appErr.Message,
					Code:    string(appErr.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}
