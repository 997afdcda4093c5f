package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeAmountPrecision  ErrorCode = "AMOUNT_PRECISION"
	ErrCodeAmountTooHigh    ErrorCode = "AMOUNT_TOO_HIGH"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"

	ErrCodePaymentNotFound           ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodePaymentVerificationFailed ErrorCode = "PAYMENT_VERIFICATION_FAILED"
	ErrCodeInvalidWebhookSignature   ErrorCode = "INVALID_WEBHOOK_SIGNATURE"
	ErrCodeInvalidWebhookPayload     ErrorCode = "INVALID_WEBHOOK_PAYLOAD"

	ErrCodeGatewayError       ErrorCode = "GATEWAY_ERROR"
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
)

// AppError is what services return and handlers render. Only Type, Code,
// Message and Details reach the client; Cause stays server side.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if details, ok := e.Details.(ValidationErrors); ok && len(details.Errors) > 0 {
		return details.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails sets Details on e and returns it. Use it on fresh errors only,
// never on the shared Err* values below.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{
			Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}},
		})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewGatewayError reports an upstream payment gateway failure. The message
// stays generic; the cause is kept for logs only.
func NewGatewayError(statusCode int, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    "payment gateway error",
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewVerificationError never carries a cause: callers must not be able to
// tell a bad signature from an unknown order.
func NewVerificationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

var (
	ErrPaymentNotFound         = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrPaymentVerification     = NewVerificationError("Payment verification failed", ErrCodePaymentVerificationFailed)
	ErrInvalidWebhookSignature = NewVerificationError("invalid webhook signature", ErrCodeInvalidWebhookSignature)
	ErrInvalidWebhookPayload   = NewValidationError("invalid webhook payload", ErrCodeInvalidWebhookPayload)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type public struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(public{Type: e.Type, Code: e.Code, Message: e.Message, Details: e.Details})
}
