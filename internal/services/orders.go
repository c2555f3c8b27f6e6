package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

// OrderService wraps the order and payment endpoints.
type OrderService struct {
	backend Backend
}

// NewOrderService constructs OrderService.
func NewOrderService(backend Backend) *OrderService {
	return &OrderService{backend: backend}
}

// Create places an order. The idempotency key lets the backend collapse a
// retried submission into the order it already created.
func (s *OrderService) Create(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.OrderResponse, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}

	var resp models.OrderResponse
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   req,
		Header: header,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to place order."
		}
		return nil, apperr.New(apperr.KindBusiness, msg)
	}
	return &resp, nil
}

// VerifyPayment asks the backend to confirm a gateway payment.
func (s *OrderService) VerifyPayment(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	var resp models.VerifyResponse
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodPost, Path: "/payments/verify", Body: req}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetByID returns one of the user's orders.
func (s *OrderService) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	var resp envelope[*models.Order]
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/orders/" + url.PathEscape(orderID),
		Route:  "/orders/:id",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("Order not found."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type orderList struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       []models.Order  `json:"data"`
	Pagination models.PageInfo `json:"pagination"`
}

// List returns a page of the user's orders.
func (s *OrderService) List(ctx context.Context, params models.OrderListParams) ([]models.Order, models.PageInfo, error) {
	query := utils.NewPagination(params.Page, params.Limit, 10).Query()
	if params.Status != "" {
		query.Set("status", params.Status)
	}
	if params.Sort != "" {
		query.Set("sort", params.Sort)
	}

	var resp orderList
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/orders/my", Query: query}, &resp)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	if !resp.Success {
		return nil, models.PageInfo{}, apperr.New(apperr.KindBusiness, "Could not load orders.")
	}
	return resp.Data, resp.Pagination, nil
}

// Cancel cancels an unpaid order.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	var resp envelope[*models.Order]
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodDelete,
		Path:   "/orders/" + url.PathEscape(orderID),
		Route:  "/orders/:id",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("Could not cancel order " + strconv.Quote(orderID) + "."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
