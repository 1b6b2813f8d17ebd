package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a machine-readable error category.
// The codes map to distinct caller-visible outcomes: validation and
// not-found errors are 4xx-equivalents, insufficient-funds and risk
// violations are expected business rejections (409/422), and external
// service errors are 5xx-equivalents.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "RESOURCE_NOT_FOUND"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeRiskViolation     ErrorCode = "RISK_CONSTRAINT_VIOLATION"
	CodeExternalService   ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Error is the typed error carried across component boundaries. Details
// holds structured context (symbol, amounts) for the API layer and logs.
type Error struct {
	Details map[string]interface{}
	cause   error
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// NewValidationError creates a VALIDATION_ERROR
func NewValidationError(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NewNotFoundError creates a RESOURCE_NOT_FOUND error
func NewNotFoundError(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: message, Details: details}
}

// NewInsufficientFundsError creates an INSUFFICIENT_FUNDS error
func NewInsufficientFundsError(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeInsufficientFunds, Message: message, Details: details}
}

// NewRiskViolationError creates a RISK_CONSTRAINT_VIOLATION error
func NewRiskViolationError(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeRiskViolation, Message: message, Details: details}
}

// NewExternalServiceError creates an EXTERNAL_SERVICE_ERROR wrapping the
// underlying broker or network failure
func NewExternalServiceError(message string, cause error) *Error {
	return &Error{Code: CodeExternalService, Message: message, cause: cause}
}

// CodeOf extracts the error code from err, or empty string if err is not a
// domain error
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
