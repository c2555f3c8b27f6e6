package models

import "time"

// Payment methods accepted by the order endpoint.
const (
	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// ShippingAddress is the delivery address attached to an order.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone"`
	Landmark   string `json:"landmark,omitempty"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Order is a server-side order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	TotalAmount     float64         `json:"totalAmount"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"paymentStatus"`
	GatewayOrderID  string          `json:"razorpayOrderId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	ShippingAddress      ShippingAddress `json:"shippingAddress"`
	PaymentMethod        string          `json:"paymentMethod"`
	DeliveryInstructions string          `json:"deliveryInstructions,omitempty"`
}

// Prefill is the customer data passed to the gateway widget.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// PaymentInfo describes how an order must be paid. Amount is in minor
// currency units.
type PaymentInfo struct {
	PaymentRequired bool              `json:"paymentRequired"`
	RazorpayOrderID string            `json:"razorpayOrderId,omitempty"`
	Amount          int64             `json:"amount,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	Key             string            `json:"key,omitempty"`
	Prefill         Prefill           `json:"prefill"`
	Notes           map[string]string `json:"notes,omitempty"`
}

// OrderResponse is the body returned by POST /orders.
type OrderResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	OrderID     string       `json:"orderId"`
	PaymentInfo *PaymentInfo `json:"paymentInfo,omitempty"`
}

// VerifyRequest is the body of POST /payments/verify.
type VerifyRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
}

// VerifyResponse is the body returned by POST /payments/verify.
type VerifyResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// OrderListParams filters GET /orders/my.
type OrderListParams struct {
	Page   int
	Limit  int
	Status string
	Sort   string
}

// Confirmation summarises a completed checkout for the confirmation view.
type Confirmation struct {
	OrderID       string
	PaymentMethod string
	PaymentID     string
	Amount        float64
	Currency      string
	Items         []CartItem
	Customer      *User
}
