package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/auth"
)

// RegisterAuthRoutes wires the phone verification endpoints. bind runs on
// every route; issue guards every route that sends a code.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, bind fiber.Handler, issue ...fiber.Handler) {
	group := r.Group("/auth", bind)
	group.Get("/session", h.Session)
	group.Delete("/session", h.Logout)
	group.Get("/countries", h.Countries)
	group.Post("/code/verify", h.Verify)

	withIssue := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, issue...), handler)
	}
	group.Post("/phone/request", withIssue(h.RequestPhone)...)
	group.Post("/phone/manual", withIssue(h.ManualPhone)...)
	group.Post("/phone/contact", withIssue(h.Contact)...)
	group.Post("/code/resend", withIssue(h.Resend)...)
}
