package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/models"
)

// SignPayment computes the gateway signature of a payment: the hex
// HMAC-SHA256 of "gatewayOrderID|paymentID" keyed by the gateway secret.
func SignPayment(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentHandler verifies gateway payments and hosts the sandbox widget.
type PaymentHandler struct {
	store  *Store
	cfg    *config.Config
	orders *OrderHandler
	logger *slog.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(store *Store, cfg *config.Config, orders *OrderHandler, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{store: store, cfg: cfg, orders: orders, logger: logger}
}

// VerifyPayment checks the gateway signature and marks the order paid.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OrderID == "" || req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing payment verification fields")
	}

	h.store.mu.Lock()
	rec, ok := h.store.orders[req.OrderID]
	if !ok || rec.order.UserID != userID {
		h.store.mu.Unlock()
		return fiber.NewError(fiber.StatusNotFound, "Order not found")
	}
	if rec.order.PaymentStatus == models.PaymentStatusPaid {
		h.store.mu.Unlock()
		return c.JSON(models.VerifyResponse{Success: true, OrderID: req.OrderID, Status: rec.order.Status, Message: "Payment already verified"})
	}

	expected := SignPayment(h.cfg.SandboxGatewaySecret, rec.order.GatewayOrderID, req.RazorpayPaymentID)
	if req.RazorpayOrderID != rec.order.GatewayOrderID || !hmac.Equal([]byte(expected), []byte(req.RazorpaySignature)) {
		rec.order.PaymentStatus = models.PaymentStatusFailed
		h.store.mu.Unlock()
		h.logger.Warn("[payments] signature mismatch", "orderId", req.OrderID, "paymentId", req.RazorpayPaymentID)
		return c.Status(fiber.StatusBadRequest).JSON(models.VerifyResponse{
			Success: false,
			OrderID: req.OrderID,
			Message: "Payment verification failed",
		})
	}

	rec.order.PaymentStatus = models.PaymentStatusPaid
	rec.order.Status = models.OrderStatusConfirmed
	if cart := h.store.carts[userID]; cart != nil {
		cart.items = nil
	}
	order := rec.order
	h.store.mu.Unlock()

	h.logger.Info("[payments] payment verified", "orderId", order.ID, "paymentId", req.RazorpayPaymentID)
	h.orders.notify(c.UserContext(), "New paid order", order)
	return c.JSON(models.VerifyResponse{Success: true, OrderID: order.ID, Status: order.Status, Message: "Payment verified"})
}

type sandboxPayRequest struct {
	OrderID string `json:"order_id"`
	Fail    bool   `json:"fail"`
}

// SandboxPay plays the gateway: it settles a gateway order and returns the
// signed payment the widget hands to its success handler.
func (h *PaymentHandler) SandboxPay(c *fiber.Ctx) error {
	var req sandboxPayRequest
	if err := c.BodyParser(&req); err != nil || req.OrderID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order_id is required")
	}

	h.store.mu.Lock()
	found := false
	for _, rec := range h.store.orders {
		if rec.order.GatewayOrderID == req.OrderID {
			found = true
			break
		}
	}
	h.store.mu.Unlock()
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "gateway order not found")
	}

	if req.Fail {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": fiber.Map{"code": "BAD_REQUEST_ERROR", "description": "Payment declined by sandbox"},
		})
	}

	paymentID := "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return c.JSON(fiber.Map{
		"razorpay_payment_id": paymentID,
		"razorpay_order_id":   req.OrderID,
		"razorpay_signature":  SignPayment(h.cfg.SandboxGatewaySecret, req.OrderID, paymentID),
	})
}

var widgetScript = template.Must(template.New("widget").Parse(`(function () {
  var payURL = "{{js .}}";
  function Razorpay(options) { this.options = options; this.handlers = {}; }
  Razorpay.prototype.on = function (name, fn) { this.handlers[name] = fn; };
  Razorpay.prototype.open = function () {
    var self = this;
    var fail = !window.confirm("Sandbox payment of " + (self.options.amount / 100) + " " + self.options.currency + ". OK to pay, Cancel to decline.");
    fetch(payURL, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({order_id: self.options.order_id, fail: fail})
    }).then(function (r) { return r.json(); }).then(function (body) {
      if (body.error) {
        if (self.handlers["payment.failed"]) { self.handlers["payment.failed"](body); }
        return;
      }
      self.options.handler(body);
    }).catch(function () {
      if (self.options.modal && self.options.modal.ondismiss) { self.options.modal.ondismiss(); }
    });
  };
  window.Razorpay = Razorpay;
})();
`))

// WidgetScript serves a stand-in for the gateway checkout script that pays
// through SandboxPay.
func (h *PaymentHandler) WidgetScript(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	return widgetScript.Execute(c.Response().BodyWriter(), c.BaseURL()+"/api/sandbox/pay")
}
