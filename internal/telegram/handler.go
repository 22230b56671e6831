package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/logging"
)

// Handler serves the contact verification endpoint.
type Handler struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewHandler constructs a verification handler. An empty bot token makes
// every request unverified.
func NewHandler(botToken string, maxAge time.Duration, logger *slog.Logger) *Handler {
	return &Handler{botToken: botToken, maxAge: maxAge, now: time.Now, logger: logging.Component(logger, "telegram.handler")}
}

// VerifyTelegramData checks the signed response carried by posted contact data
// and that its phone matches the claimed one.
func (h *Handler) VerifyTelegramData(c *fiber.Ctx) error {
	var req ContactAuthData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"verified": h.verify(req)})
}

// Verify checks contact data in process. It lets the auth manager use this
// handler when the verification endpoint is served by the same binary.
func (h *Handler) Verify(_ context.Context, data ContactAuthData) (bool, error) {
	return h.verify(data), nil
}

func (h *Handler) verify(req ContactAuthData) bool {
	if h.botToken == "" || req.Response == "" {
		return false
	}
	data, err := ValidateInitData(req.Response, h.botToken, h.now(), h.maxAge)
	if err != nil {
		h.logger.Info("contact data rejected", slog.Any("error", err))
		return false
	}
	return digits(data.Phone()) != "" && digits(data.Phone()) == digits(req.PhoneNumber)
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
