package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/auth"
	"github.com/giftgate/giftgate/internal/logging"
	"github.com/giftgate/giftgate/internal/telegram"
)

// InitDataHeader carries the raw Telegram.WebApp.initData query string.
const InitDataHeader = "X-Telegram-Init-Data"

// InitData checks the signed initData sent by the Mini App and binds the
// request to its user: a missing X-Client-ID is filled from user.id and a
// different one is refused. The verified data is stored in the "init_data"
// local. Without a bot token nothing can be checked and the header is ignored.
func InitData(botToken string, maxAge time.Duration, required bool, logger *slog.Logger) fiber.Handler {
	log := logging.Component(logger, "middleware.init_data")
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(InitDataHeader))
		if raw == "" {
			if required {
				return initDataRejected(c, "init data required")
			}
			return c.Next()
		}
		if botToken == "" {
			return c.Next()
		}

		data, err := telegram.ValidateInitData(raw, botToken, time.Now(), maxAge)
		if err != nil {
			log.Info("init data rejected", slog.String("ip", c.IP()), slog.Any("error", err))
			return initDataRejected(c, "invalid init data")
		}
		if data.User == nil || data.User.ID == 0 {
			return initDataRejected(c, "init data carries no user")
		}

		userID := strconv.FormatInt(data.User.ID, 10)
		switch claimed := strings.TrimSpace(c.Get(auth.ClientIDHeader)); claimed {
		case "":
			c.Request().Header.Set(auth.ClientIDHeader, userID)
		case userID:
		default:
			log.Warn("client id does not match init data", slog.String("client_id", claimed), slog.String("user_id", userID))
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "client id does not match init data"})
		}
		c.Locals("init_data", data)
		return c.Next()
	}
}

func initDataRejected(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": msg, "fallback": "login"})
}
