package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by every storefront layer.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrPaymentFailed  = errors.New("payment failed")
)

const (
	codeInternal    = "INTERNAL_ERROR"
	messageInternal = "an internal error occurred"
)

// kind binds a sentinel to its wire code and status. A non-empty generic
// message replaces err.Error() when the sentinel reaches a client unwrapped
// by an AppError.
type kind struct {
	sentinel error
	code     string
	status   int
	generic  string
}

var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrConflict, "CONFLICT", http.StatusConflict, ""},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrPaymentFailed, "PAYMENT_FAILED", http.StatusUnprocessableEntity, ""},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service temporarily unavailable"},
}

// AppError is an error carrying a machine-readable code and the HTTP status
// the transport layer should answer with.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
		}
	}
	return &AppError{Code: codeInternal, Message: message, Status: http.StatusInternalServerError, Err: sentinel}
}

// NotFound reports a missing resource, e.g. NotFound("product", handle).
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s %q not found", resource, id))
}

// InvalidInput reports a request the caller must change before retrying.
func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

// Conflict reports a request that clashes with current state.
func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message)
}

// ServiceUnavailable reports that every backing path of an operation failed.
func ServiceUnavailable(message string) *AppError {
	return newAppError(ErrServiceUnavail, message)
}

// PaymentFailed reports a payment order or capture the provider refused.
func PaymentFailed(message string) *AppError {
	return newAppError(ErrPaymentFailed, message)
}

// Describe returns the HTTP status, wire code and client-safe message for err.
// AppErrors keep their own code and message. Unknown errors are reported as
// internal without leaking their text.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			message = k.generic
			if message == "" {
				message = err.Error()
			}
			return k.status, k.code, message
		}
	}
	return http.StatusInternalServerError, codeInternal, messageInternal
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}
