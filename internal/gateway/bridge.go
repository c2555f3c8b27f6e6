// Package gateway hands a payment session to the external checkout widget
// and turns its callbacks into events.
package gateway

import (
	"context"

	"github.com/example/quickcommerce/internal/models"
)

// Outcome is how a gateway session ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeFailure
	OutcomeDismissed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeDismissed:
		return "dismissed"
	}
	return "unknown"
}

// Event is the single callback of a gateway session.
type Event struct {
	Outcome Outcome

	// Set on success.
	PaymentID      string
	GatewayOrderID string
	Signature      string

	// Set on failure.
	Code        string
	Description string
}

// Session is what the widget needs to collect a payment.
type Session struct {
	Key            string
	Amount         int64
	Currency       string
	GatewayOrderID string
	OrderID        string
	Name           string
	Description    string
	Prefill        models.Prefill
	Notes          map[string]string
}

// CancelFunc abandons a session. Once it returns, the session's channel is
// closed and later callbacks are refused. Calling it after the session
// ended is a no-op.
type CancelFunc func()

// Bridge opens gateway sessions. Each returned channel yields at most one
// Event and is then closed; a cancelled session closes without one.
type Bridge interface {
	// Load prepares the gateway script. Successful loads are cached.
	Load(ctx context.Context) error
	Open(ctx context.Context, s Session) (<-chan Event, CancelFunc, error)
}
