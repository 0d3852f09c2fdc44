package http

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Reason  string       `json:"reason"`
	Details []FieldError `json:"details,omitempty"`
}

var (
	reBytes32 = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	reUint    = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// 0x-prefixed 20-byte hex address
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 42 && common.IsHexAddress(s)
	})
	// 0x-prefixed 32-byte hex word
	_ = v.RegisterValidation("bytes32", func(fl validator.FieldLevel) bool {
		return reBytes32.MatchString(fl.Field().String())
	})
	// unsigned base-10 integer carried as a string, no sign or fraction
	_ = v.RegisterValidation("uintstr", func(fl validator.FieldLevel) bool {
		return reUint.MatchString(fl.Field().String())
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "address":
			out = append(out, FieldError{Field: field, Message: "must be a 0x-prefixed 20-byte hex address"})
		case "bytes32":
			out = append(out, FieldError{Field: field, Message: "must be a 0x-prefixed 32-byte hex value"})
		case "uintstr":
			out = append(out, FieldError{Field: field, Message: "must be an unsigned integer string"})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " long"})
		case "min":
			out = append(out, FieldError{Field: field, Message: "must be at least " + e.Param() + " long"})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "oneof":
			out = append(out, FieldError{Field: field, Message: "must be one of " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
