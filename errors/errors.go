package errors

import (
	"fmt"
	"net/http"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden      = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Validation error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
)

// Checkout and payment error types. These map the business failures a
// checkout or payment request can hit to stable codes the controllers
// surface to the client.
var (
	ErrCouponInvalid        = New(http.StatusUnprocessableEntity, "Coupon is not valid for this order", nil)
	ErrCouponExhausted      = New(http.StatusConflict, "Coupon usage limit reached", nil)
	ErrCouponNoLongerValid  = New(http.StatusConflict, "Coupon is no longer valid", nil)
	ErrOutOfStock           = New(http.StatusConflict, "Product is out of stock", nil)
	ErrGatewayTimeout       = New(http.StatusGatewayTimeout, "Payment gateway timed out", nil)
	ErrGatewayError         = New(http.StatusBadGateway, "Payment gateway error", nil)
	ErrInvalidTransition    = New(http.StatusConflict, "Invalid order state transition", nil)
	ErrDownloadNotAllowed   = New(http.StatusForbidden, "Download not allowed", nil)
	ErrOrderNotFound        = New(http.StatusNotFound, "Order not found", nil)
	ErrPaymentNotConfigured = New(http.StatusServiceUnavailable, "Payment gateway not configured", nil)
)

// Is reports whether err carries the same code and message as target.
// Sentinel errors above are compared by value, wrapped ones by code.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e == target || (e.Code == target.Code && e.Message == target.Message)
	}
	return false
}
