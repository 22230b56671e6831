package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/gifts"
)

// RegisterGiftRoutes wires collection endpoints behind guards, which end with
// the session gate.
func RegisterGiftRoutes(r fiber.Router, h *gifts.Handler, guards ...fiber.Handler) {
	r.Get("/collections/:name", append(guards, h.GetCollection)...)
}
