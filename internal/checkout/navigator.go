package checkout

import (
	"context"
	"log/slog"

	"github.com/example/quickcommerce/internal/models"
)

// LogNavigator records confirmations in the log.
type LogNavigator struct {
	Logger *slog.Logger
}

func (n LogNavigator) ShowConfirmation(ctx context.Context, c models.Confirmation) {
	n.Logger.InfoContext(ctx, "[checkout] order confirmed",
		"orderId", c.OrderID,
		"method", c.PaymentMethod,
		"paymentId", c.PaymentID,
		"amount", c.Amount,
		"items", len(c.Items))
}

// Navigators shows a confirmation on each navigator in turn.
type Navigators []Navigator

func (ns Navigators) ShowConfirmation(ctx context.Context, c models.Confirmation) {
	for _, n := range ns {
		n.ShowConfirmation(ctx, c)
	}
}
