package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/models"
)

// CartService wraps the /cart endpoints. Mutations return the server cart
// when the backend includes one, nil otherwise.
type CartService struct {
	backend Backend
}

// NewCartService constructs CartService.
func NewCartService(backend Backend) *CartService {
	return &CartService{backend: backend}
}

// Get returns the server cart. A 404 means the user has no cart yet and
// yields an empty one.
func (s *CartService) Get(ctx context.Context) (*models.CartPayload, error) {
	var resp envelope[*models.CartPayload]
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/cart"}, &resp)
	if apperr.StatusCode(err) == http.StatusNotFound {
		return &models.CartPayload{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := resp.check("Invalid cart response"); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return &models.CartPayload{}, nil
	}
	return resp.Data, nil
}

// AddItem adds quantity of productID.
func (s *CartService) AddItem(ctx context.Context, productID string, quantity int, variation map[string]any) (*models.CartPayload, error) {
	if productID == "" {
		return nil, apperr.Validation("Product ID is required.", nil)
	}
	return s.mutate(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/cart/items",
		Body:   models.AddCartItemRequest{ProductID: productID, Quantity: quantity, Variation: variation},
	}, "Failed to add item to cart")
}

// UpdateItem sets the quantity of a cart line.
func (s *CartService) UpdateItem(ctx context.Context, itemID string, quantity int) (*models.CartPayload, error) {
	return s.mutate(ctx, api.Request{
		Method: http.MethodPut,
		Path:   "/cart/items/" + url.PathEscape(itemID),
		Route:  "/cart/items/:id",
		Body:   models.UpdateCartItemRequest{Quantity: quantity},
	}, "Failed to update cart item")
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, itemID string) (*models.CartPayload, error) {
	return s.mutate(ctx, api.Request{
		Method: http.MethodDelete,
		Path:   "/cart/items/" + url.PathEscape(itemID),
		Route:  "/cart/items/:id",
	}, "Failed to remove item from cart")
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) (*models.CartPayload, error) {
	return s.mutate(ctx, api.Request{Method: http.MethodDelete, Path: "/cart"}, "Failed to clear cart")
}

func (s *CartService) mutate(ctx context.Context, req api.Request, fallback string) (*models.CartPayload, error) {
	var resp envelope[*models.CartPayload]
	if err := s.backend.DoJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(fallback); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
