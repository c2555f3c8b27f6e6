package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Ping answers the client's wake-up probe.
func Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": "pong", "time": time.Now().UTC()})
}
