package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/example/quickcommerce/internal/apperr"
)

type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
	Errors  any    `json:"errors"`
}

// responseError normalizes a non-2xx response. The message is taken from the
// body's message field, then its error field, then a generic status text.
func responseError(status int, body []byte) *apperr.Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Message
	if message == "" {
		if s, ok := parsed.Error.(string); ok {
			message = s
		}
	}
	if message == "" {
		message = fmt.Sprintf("Request failed with status %d", status)
	}

	return &apperr.Error{
		Kind:       kindForStatus(status),
		Origin:     apperr.OriginResponse,
		Message:    message,
		Details:    parsed.Errors,
		StatusCode: status,
	}
}

func kindForStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.KindAuth
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return apperr.KindTransient
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperr.KindValidation
	default:
		return apperr.KindBusiness
	}
}

// noResponse normalizes a request that never got an HTTP response.
func (c *Client) noResponse(err error) *apperr.Error {
	var message string
	switch {
	case errors.Is(err, context.Canceled):
		message = "Request was cancelled."
	case isTimeout(err):
		message = fmt.Sprintf("Request Timeout (%ds). Our server might be waking up - please try again in a moment.",
			int(c.http.Timeout.Seconds()))
	case isNetworkError(err):
		message = "Network Error. Please check your connection or try again in a moment as our server wakes up."
	default:
		message = "No response received from server. The server might be starting up - please try again in a moment."
	}
	return &apperr.Error{
		Kind:       apperr.KindTransient,
		Origin:     apperr.OriginNoResponse,
		Message:    message,
		Underlying: err,
	}
}

func setupError(err error) *apperr.Error {
	return &apperr.Error{
		Kind:       apperr.KindInternal,
		Origin:     apperr.OriginSetup,
		Message:    "Request setup error: " + err.Error(),
		Underlying: err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) || errors.As(err, &dnsErr)
}
