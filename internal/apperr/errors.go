package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the normalized failure taxonomy shared by every component.
type Kind string

const (
	// KindAuth means the session is missing, expired or rejected.
	KindAuth Kind = "auth_error"

	// KindTransient means the backend could not be reached or is overloaded.
	KindTransient Kind = "transient_network_error"

	// KindValidation means the input was rejected before or by the backend.
	KindValidation Kind = "validation_error"

	// KindBusiness means the backend refused the operation.
	KindBusiness Kind = "business_error"

	// KindGateway means the payment gateway reported a failure or is misconfigured.
	KindGateway Kind = "gateway_error"

	// KindVerification means a captured payment could not be confirmed.
	KindVerification Kind = "verification_error"

	// KindInternal is anything else.
	KindInternal Kind = "internal"
)

// Origin records where a request failed.
type Origin string

const (
	OriginResponse   Origin = "response"
	OriginNoResponse Origin = "no_response"
	OriginSetup      Origin = "setup"
)

const verificationHint = "If money was debited, do not pay again; contact support with your order ID."

// Error is the normalized error returned across package boundaries.
type Error struct {
	Kind       Kind
	Origin     Origin
	Message    string
	Details    any
	StatusCode int
	// Code is the gateway or backend error code, when one was supplied.
	Code          string
	Misconfigured bool
	Underlying    error
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s (%d)", e.Kind, e.StatusCode)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether the request may succeed if sent again: no
// response at all, 429, or any 5xx.
func (e *Error) Retryable() bool {
	if e.Origin == OriginNoResponse {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// UserMessage is a short text suitable for showing to the shopper.
func (e *Error) UserMessage() string {
	if e.Kind == KindVerification {
		return e.Message + " " + verificationHint
	}
	return e.Message
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Underlying: err}
}

// Validation creates a validation error carrying per-field details.
func Validation(message string, details map[string]string) *Error {
	e := &Error{Kind: KindValidation, Message: message}
	if len(details) > 0 {
		e.Details = details
	}
	return e
}

// Gateway creates a gateway error carrying the gateway's code.
func Gateway(code, message string) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message}
}

// Misconfiguration creates a gateway error for missing gateway setup.
func Misconfiguration(message string) *Error {
	return &Error{Kind: KindGateway, Message: message, Misconfigured: true}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf extracts the error kind from an error
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable()
	}
	return false
}

// StatusCode returns the HTTP status attached to err, or zero.
func StatusCode(err error) int {
	if e, ok := As(err); ok {
		return e.StatusCode
	}
	return 0
}

// UserMessage returns a shopper-facing message for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.UserMessage()
	}
	return "Something went wrong. Please try again."
}
