package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

// ProductHandler serves the product catalog.
type ProductHandler struct {
	store *Store
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(store *Store) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterProductRoutes attaches product routes to the provided router group.
func (h *ProductHandler) RegisterProductRoutes(router fiber.Router) {
	router.Get("/", h.ListProducts)
	router.Get("/slug/:slug", h.GetProductBySlug)
}

// ListProducts returns paginated products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, 20)
	category := c.Query("category")
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))

	h.store.mu.Lock()
	categoryID := category
	for _, cat := range h.store.categories {
		if cat.Slug == category {
			categoryID = cat.ID
		}
	}
	var matched []models.Product
	for _, p := range h.store.products {
		if category != "" && p.CategoryID != categoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	h.store.mu.Unlock()

	start, end := pg.Window(len(matched))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    append([]models.Product{}, matched[start:end]...),
		"pagination": models.PageInfo{
			Page:  pg.Page,
			Limit: pg.Limit,
			Total: len(matched),
			Pages: pg.Pages(len(matched)),
		},
	})
}

// GetProductBySlug loads a single product.
func (h *ProductHandler) GetProductBySlug(c *fiber.Ctx) error {
	h.store.mu.Lock()
	product, ok := h.store.productLocked(c.Params("slug"))
	h.store.mu.Unlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}
