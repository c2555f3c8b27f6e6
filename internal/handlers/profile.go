package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/models"
)

// ProfileHandler manages the profile and saved delivery locations.
type ProfileHandler struct {
	store *Store
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(store *Store) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	user, ok := h.store.user(userID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// Address endpoints

// ListAddresses returns user addresses.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	h.store.mu.Lock()
	addresses := append([]models.Address{}, h.store.addresses[userID]...)
	h.store.mu.Unlock()

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

// CreateAddress saves an address. The first address becomes the default.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var address models.Address
	if err := c.BodyParser(&address); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if details := validateShipping(address.Shipping()); len(details) > 0 {
		return validationFailed(c, "Invalid address", details)
	}

	address.ID = uuid.NewString()
	if address.Country == "" {
		address.Country = "India"
	}

	h.store.mu.Lock()
	existing := h.store.addresses[userID]
	if len(existing) == 0 {
		address.IsDefault = true
	}
	if address.IsDefault {
		for i := range existing {
			existing[i].IsDefault = false
		}
	}
	h.store.addresses[userID] = append(existing, address)
	h.store.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes one of the user's addresses.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id := c.Params("id")

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	list := h.store.addresses[userID]
	for i, a := range list {
		if a.ID != id {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if a.IsDefault && len(list) > 0 {
			list[0].IsDefault = true
		}
		h.store.addresses[userID] = list
		return c.JSON(fiber.Map{"success": true, "message": "address deleted"})
	}
	return fiber.NewError(fiber.StatusNotFound, "address not found")
}

// CheckDeliverability reports whether a postal code is inside the delivery area.
func (h *ProfileHandler) CheckDeliverability(c *fiber.Ctx) error {
	postal := strings.TrimSpace(c.Query("postalCode"))
	if postal == "" {
		return fiber.NewError(fiber.StatusBadRequest, "postalCode is required")
	}

	deliverable := false
	if pinCode.MatchString(postal) {
		for _, prefix := range h.store.serviceable {
			if strings.HasPrefix(postal, prefix) {
				deliverable = true
				break
			}
		}
	}

	resp := models.DeliverabilityResponse{Success: true, IsDeliverable: deliverable}
	if !deliverable {
		resp.Message = "We do not deliver to this area yet"
	}
	return c.JSON(resp)
}
