package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/quickcommerce/internal/models"
)

// CatalogHandler serves categories.
type CatalogHandler struct {
	store *Store
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(store *Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// ListCategories returns all categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	h.store.mu.Lock()
	categories := append([]models.Category{}, h.store.categories...)
	h.store.mu.Unlock()

	if c.QueryBool("featured") {
		featured := categories[:0]
		for _, cat := range categories {
			if cat.Featured {
				featured = append(featured, cat)
			}
		}
		categories = featured
	}

	return c.JSON(fiber.Map{"success": true, "data": categories})
}
