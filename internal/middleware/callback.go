package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// CallbackTokenHeader carries the per-session secret of gateway callbacks.
const CallbackTokenHeader = "X-Callback-Token"

// CallbackTokenMiddleware rejects callbacks whose token does not match the
// one issued for the :id session. lookup returns false for unknown sessions.
func CallbackTokenMiddleware(lookup func(sessionID string) (string, bool)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected, ok := lookup(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown payment session")
		}

		token := c.Get(CallbackTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid callback token")
		}
		return c.Next()
	}
}
