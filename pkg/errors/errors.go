package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// PolyException represents a custom exception for the CLOB client
type PolyException struct {
	Message string
}

func (e *PolyException) Error() string {
	return e.Message
}

// NewPolyException creates a new PolyException
func NewPolyException(message string) *PolyException {
	return &PolyException{Message: message}
}

// Common errors
var (
	ErrL1AuthUnavailable = NewPolyException("Level 1 Authentication Unavailable")
	ErrL2AuthUnavailable = NewPolyException("Level 2 Authentication Unavailable")

	ErrInvalidChainID  = NewPolyException("Invalid chain ID")
	ErrInvalidSide     = NewPolyException("order side must be BUY or SELL")
	ErrNoOrderbook     = NewPolyException("No orderbook available")
	ErrNoMatch         = NewPolyException("No match found")
	ErrSignerMismatch  = NewPolyException("order signer does not match signing address")
	ErrNegRiskUnknown  = NewPolyException("neg risk flag unavailable for market")
	ErrMissingResponse = NewPolyException("empty response from exchange")
)

// ApiError is a non-2xx response from the exchange
type ApiError struct {
	StatusCode int
	Message    string
	Body       string
	Method     string
	Path       string
}

func (e *ApiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.Method != "" {
		return fmt.Sprintf("HTTP %d %s %s: %s", e.StatusCode, e.Method, e.Path, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// ValidationError carries every failed order-parameter rule
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + strings.Join(e.Errors, "; ")
}

// OrderRejectedError is a business-logic rejection (success:false). Message
// is the exchange's text, verbatim.
type OrderRejectedError struct {
	Message string
	OrderID string
}

func (e *OrderRejectedError) Error() string {
	if e.Message == "" {
		return "order rejected by exchange"
	}
	return e.Message
}

// IsUnauthorized reports whether err wraps a 401 response
func IsUnauthorized(err error) bool {
	var apiErr *ApiError
	return stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsInvalidApiKey reports whether err is a 401 that blames the API key.
// These responses invalidate cached L2 credentials.
func IsInvalidApiKey(err error) bool {
	var apiErr *ApiError
	if !stderrors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	text := strings.ToLower(apiErr.Message + " " + apiErr.Body)
	return strings.Contains(text, "api key") || strings.Contains(text, "apikey") || strings.Contains(text, "api_key")
}

// NewInvalidTickSizeError creates a tick size validation error
func NewInvalidTickSizeError(tickSize, minTickSize string) error {
	return fmt.Errorf("invalid tick size (%s), minimum for the market is %s", tickSize, minTickSize)
}
