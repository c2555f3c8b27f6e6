package services

import (
	"context"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/apperr"
)

// Backend is the transport the services call through; *api.Client
// implements it.
type Backend interface {
	DoJSON(ctx context.Context, req api.Request, out any) error
}

// envelope is the {success, message, data} wrapper most endpoints use.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// check turns a 2xx body with success=false into a business error.
func (e envelope[T]) check(fallback string) error {
	if e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = fallback
	}
	return apperr.New(apperr.KindBusiness, msg)
}
