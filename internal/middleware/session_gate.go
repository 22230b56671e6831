package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/auth"
)

// SessionGate restores the caller's session and rejects requests without a
// valid one. Downstream handlers read "client_id" and "authorizer" locals.
func SessionGate(registry *auth.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID, err := auth.ClientID(c)
		if err != nil {
			return err
		}
		m, err := registry.Authorize(c.UserContext(), clientID)
		if err != nil {
			return fiber.NewError(http.StatusServiceUnavailable, "session store unavailable")
		}
		if !m.IsAuthorized() {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error":    "phone verification required",
				"fallback": "login",
			})
		}
		c.Locals("client_id", clientID)
		c.Locals("authorizer", m)
		return c.Next()
	}
}
