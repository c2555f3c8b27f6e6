package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/models"
)

// CartHandler manages the shopper's server-side cart.
type CartHandler struct {
	store *Store
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(store *Store) *CartHandler {
	return &CartHandler{store: store}
}

func (h *CartHandler) respond(c *fiber.Ctx, items []models.CartItem) error {
	return c.JSON(fiber.Map{"success": true, "data": cartPayload(items)})
}

// GetCart returns the cart. Users who never added anything get a 404.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	cart, ok := h.store.carts[userID]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Cart not found")
	}
	return h.respond(c, cart.items)
}

// AddItem adds a product to the cart, merging with an identical line.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.AddCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == "" {
		return validationFailed(c, "Validation failed", map[string]string{"productId": "required"})
	}
	if req.Quantity < 1 {
		return validationFailed(c, "Validation failed", map[string]string{"quantity": "must be at least 1"})
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	product, ok := h.store.productLocked(req.ProductID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}

	cart := h.store.carts[userID]
	if cart == nil {
		cart = &cartRecord{}
		h.store.carts[userID] = cart
	}

	for i, item := range cart.items {
		if item.ProductID != product.ID || !sameVariation(item.Variation, req.Variation) {
			continue
		}
		if err := checkStock(product, item.Quantity+req.Quantity); err != nil {
			return err
		}
		cart.items[i].Quantity += req.Quantity
		return h.respond(c, cart.items)
	}

	if err := checkStock(product, req.Quantity); err != nil {
		return err
	}
	cart.items = append(cart.items, models.CartItem{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		ProductSlug: product.Slug,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		Price:       models.Float64(product.Price),
		Variation:   req.Variation,
	})
	return h.respond(c, cart.items)
}

// UpdateItem sets the quantity of a cart line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.UpdateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Quantity < 1 {
		return validationFailed(c, "Validation failed", map[string]string{"quantity": "must be at least 1"})
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	cart := h.store.carts[userID]
	if cart == nil {
		return fiber.NewError(fiber.StatusNotFound, "Cart item not found")
	}
	for i, item := range cart.items {
		if item.ID != c.Params("id") {
			continue
		}
		if product, ok := h.store.productLocked(item.ProductID); ok {
			if err := checkStock(product, req.Quantity); err != nil {
				return err
			}
		}
		cart.items[i].Quantity = req.Quantity
		return h.respond(c, cart.items)
	}
	return fiber.NewError(fiber.StatusNotFound, "Cart item not found")
}

// RemoveItem deletes a cart line.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	cart := h.store.carts[userID]
	if cart == nil {
		return fiber.NewError(fiber.StatusNotFound, "Cart item not found")
	}
	for i, item := range cart.items {
		if item.ID == c.Params("id") {
			cart.items = append(cart.items[:i], cart.items[i+1:]...)
			return h.respond(c, cart.items)
		}
	}
	return fiber.NewError(fiber.StatusNotFound, "Cart item not found")
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.carts[userID] = &cartRecord{}
	return h.respond(c, nil)
}

func checkStock(p models.Product, quantity int) error {
	if quantity > p.Stock {
		return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Only %d left in stock", p.Stock))
	}
	return nil
}
