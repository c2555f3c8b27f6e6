package handlers

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/quickcommerce/internal/middleware"
	"github.com/example/quickcommerce/internal/models"
)

var pinCode = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func validationFailed(c *fiber.Ctx, message string, details map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"message": message,
		"errors":  details,
	})
}

func currentUser(c *fiber.Ctx) (string, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

// validateShipping returns per-field problems of a delivery address.
func validateShipping(a models.ShippingAddress) map[string]string {
	details := map[string]string{}
	required := map[string]string{
		"street":     a.Street,
		"city":       a.City,
		"state":      a.State,
		"postalCode": a.PostalCode,
		"phone":      a.Phone,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "required"
		}
	}
	if _, missing := details["postalCode"]; !missing && !pinCode.MatchString(strings.TrimSpace(a.PostalCode)) {
		details["postalCode"] = "must be a 6 digit PIN code"
	}
	return details
}
