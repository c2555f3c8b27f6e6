package handlers

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

// Notifier delivers admin notifications about new and paid orders.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// OrderHandler manages order endpoints.
type OrderHandler struct {
	store    *Store
	cfg      *config.Config
	notifier Notifier
	logger   *slog.Logger
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(store *Store, cfg *config.Config, notifier Notifier, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{store: store, cfg: cfg, notifier: notifier, logger: logger}
}

// CreateOrder places an order from the user's cart. Repeating a request
// with the same Idempotency-Key returns the original order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	details := validateShipping(req.ShippingAddress)
	if req.PaymentMethod != models.PaymentMethodCOD && req.PaymentMethod != models.PaymentMethodRazorpay {
		details["paymentMethod"] = "must be cod or razorpay"
	}
	if len(details) > 0 {
		return validationFailed(c, "Validation failed", details)
	}

	idemKey := ""
	if key := strings.TrimSpace(c.Get("Idempotency-Key")); key != "" {
		idemKey = userID + "|" + key
	}

	h.store.mu.Lock()
	if idemKey != "" {
		if orderID, ok := h.store.idempotency[idemKey]; ok {
			resp := h.store.orders[orderID].response
			h.store.mu.Unlock()
			return c.JSON(resp)
		}
	}

	cart := h.store.carts[userID]
	if cart == nil || len(cart.items) == 0 {
		h.store.mu.Unlock()
		return fiber.NewError(fiber.StatusBadRequest, "Cart is empty")
	}
	user := h.store.accounts[userID].user

	order := models.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	for _, item := range cart.items {
		price := 0.0
		if item.Price != nil {
			price = *item.Price
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       price,
		})
		order.TotalAmount += price * float64(item.Quantity)
	}

	resp := models.OrderResponse{Success: true, OrderID: order.ID}
	if req.PaymentMethod == models.PaymentMethodCOD {
		order.Status = models.OrderStatusConfirmed
		cart.items = nil
		resp.Message = "Order placed successfully"
		resp.PaymentInfo = &models.PaymentInfo{PaymentRequired: false}
	} else {
		order.GatewayOrderID = "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
		resp.Message = "Order created, awaiting payment"
		resp.PaymentInfo = &models.PaymentInfo{
			PaymentRequired: true,
			RazorpayOrderID: order.GatewayOrderID,
			Amount:          utils.ToMinorUnits(order.TotalAmount),
			Currency:        "INR",
			Key:             h.cfg.SandboxGatewayKey,
			Prefill:         models.Prefill{Name: user.Name, Email: user.Email, Contact: user.Phone},
			Notes:           map[string]string{"orderId": order.ID},
		}
	}

	h.store.orders[order.ID] = &orderRecord{order: order, response: resp}
	h.store.orderList = append(h.store.orderList, order.ID)
	if idemKey != "" {
		h.store.idempotency[idemKey] = order.ID
	}
	h.store.mu.Unlock()

	h.logger.Info("[orders] order created", "orderId", order.ID, "method", order.PaymentMethod, "total", order.TotalAmount)
	if order.PaymentMethod == models.PaymentMethodCOD {
		h.notify(c.UserContext(), "New COD order", order)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListMyOrders returns the user's orders, newest first unless sort=oldest.
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c, 10)
	status := c.Query("status")

	h.store.mu.Lock()
	var orders []models.Order
	for _, id := range h.store.orderList {
		o := h.store.orders[id].order
		if o.UserID != userID || (status != "" && o.Status != status) {
			continue
		}
		orders = append(orders, o)
	}
	h.store.mu.Unlock()

	if c.Query("sort") != "oldest" {
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	}

	start, end := pg.Window(len(orders))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    append([]models.Order{}, orders[start:end]...),
		"pagination": models.PageInfo{
			Page:  pg.Page,
			Limit: pg.Limit,
			Total: len(orders),
			Pages: pg.Pages(len(orders)),
		},
	})
}

// GetOrder returns one order owned by the user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	rec, ok := h.store.orders[c.Params("id")]
	var order models.Order
	if ok {
		order = rec.order
	}
	h.store.mu.Unlock()

	if !ok || order.UserID != userID {
		return fiber.NewError(fiber.StatusNotFound, "Order not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels an order that has not been paid.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	rec, ok := h.store.orders[c.Params("id")]
	if !ok || rec.order.UserID != userID {
		return fiber.NewError(fiber.StatusNotFound, "Order not found")
	}
	if rec.order.Status == models.OrderStatusCancelled || rec.order.PaymentStatus == models.PaymentStatusPaid {
		return fiber.NewError(fiber.StatusConflict, "Order can no longer be cancelled")
	}

	rec.order.Status = models.OrderStatusCancelled
	return c.JSON(fiber.Map{"success": true, "data": rec.order})
}

func (h *OrderHandler) notify(ctx context.Context, title string, o models.Order) {
	if h.notifier == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "Order: <code>%s</code>\n", html.EscapeString(o.ID))
	for _, item := range o.Items {
		fmt.Fprintf(&b, "• %s × %d\n", html.EscapeString(item.ProductName), item.Quantity)
	}
	fmt.Fprintf(&b, "Total: %s\n", utils.FormatPrice(o.TotalAmount, "INR"))
	fmt.Fprintf(&b, "Ship to: %s, %s %s", html.EscapeString(o.ShippingAddress.City),
		html.EscapeString(o.ShippingAddress.State), html.EscapeString(o.ShippingAddress.PostalCode))

	if err := h.notifier.SendMessage(ctx, b.String()); err != nil {
		h.logger.Warn("[orders] admin notification failed", "orderId", o.ID, "error", err)
	}
}
