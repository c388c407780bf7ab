package validation

import (
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Validator wraps struct validation and input sanitisation
type Validator struct {
	validator *validator.Validate
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

// NewValidator creates a validator that reports fields by their JSON names
// and understands decimal.Decimal values
func NewValidator(logger *zap.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("decimal", validateDecimalDigits)

	return &Validator{
		validator: v,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// FieldError describes a single rejected field
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// FieldErrors is a collection of field errors
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", fe[0].Message)
}

// ValidateStruct validates a struct using its validate tags
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fieldErrs := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		value := ""
		if fe.Value() != nil {
			value = fmt.Sprintf("%v", fe.Value())
		}
		fieldErrs = append(fieldErrs, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   value,
			Message: errorMessage(fe),
		})
	}
	return fieldErrs
}

// SanitizeText strips any markup from free text and trims surrounding space
func (v *Validator) SanitizeText(input string) string {
	if input == "" {
		return input
	}
	sanitized := html.UnescapeString(v.sanitizer.Sanitize(input))
	sanitized = strings.TrimSpace(sanitized)
	if sanitized != strings.TrimSpace(input) {
		v.logger.Debug("Markup stripped from input", zap.String("input", input))
	}
	return sanitized
}

// validateDecimalDigits implements the "decimal=I.F" tag: at most I integer
// digits and F fractional digits. The custom type func hands validators a
// float64, so the original decimal is read back from the parent struct.
func validateDecimalDigits(fl validator.FieldLevel) bool {
	intDigits, fracDigits, err := parseDigitsParam(fl.Param())
	if err != nil {
		return false
	}

	field := fl.Parent().FieldByName(fl.StructFieldName())
	if !field.IsValid() {
		return false
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return DecimalFits(d, intDigits, fracDigits)
}

func parseDigitsParam(param string) (int32, int32, error) {
	whole, frac, found := strings.Cut(param, ".")
	if !found {
		return 0, 0, fmt.Errorf("decimal param %q must look like I.F", param)
	}
	i, err := strconv.ParseInt(whole, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	f, err := strconv.ParseInt(frac, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return int32(i), int32(f), nil
}

// DecimalFits reports whether d has at most intDigits digits before the
// point and fracDigits significant digits after it
func DecimalFits(d decimal.Decimal, intDigits, fracDigits int32) bool {
	if !d.Equal(d.Truncate(fracDigits)) {
		return false
	}
	whole := d.Abs().Truncate(0)
	if whole.IsZero() {
		return true
	}
	n := int32(whole.NumDigits())
	if e := whole.Exponent(); e > 0 {
		n += e
	}
	return n <= intDigits
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "decimal":
		whole, frac, _ := strings.Cut(fe.Param(), ".")
		return fmt.Sprintf("%s must have at most %s integer and %s fractional digits", fe.Field(), whole, frac)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
