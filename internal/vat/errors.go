package vat

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a validation failure class. The set is closed so
// callers can switch exhaustively instead of matching message strings.
type ErrorCode string

const (
	CodeInvalidPriceType ErrorCode = "INVALID_PRICE_TYPE"
	CodeInvalidRateType  ErrorCode = "INVALID_RATE_TYPE"
	CodeNegativePrice    ErrorCode = "NEGATIVE_PRICE"
	CodeRateOutOfRange   ErrorCode = "RATE_OUT_OF_RANGE"
	CodeUnknownCountry   ErrorCode = "UNKNOWN_COUNTRY"
)

// ValidationError is returned by the calculation functions for any expected
// invalid input. It carries the failure class and the offending field so the
// calling layer can surface a precise 4xx response.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newValidationError(code ErrorCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a *ValidationError.
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
