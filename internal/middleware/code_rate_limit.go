package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/giftgate/giftgate/internal/auth"
)

const (
	codeRateLimitPrefix = "rl:code:"
	codeRateLimitWindow = time.Minute
	defaultCodeLimit    = 5
)

// CodeRateLimit caps how many verification codes a client may request per
// minute. Clients are keyed by X-Client-ID, falling back to the remote IP.
// Without Redis, or when Redis fails, requests pass.
func CodeRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultCodeLimit
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := strings.TrimSpace(c.Get(auth.ClientIDHeader))
		if subject == "" {
			subject = c.IP()
		}
		key := codeRateLimitPrefix + subject

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			if logger != nil {
				logger.Warn("code rate limit unavailable", slog.String("subject", subject), slog.Any("error", err))
			}
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, codeRateLimitWindow)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many verification codes requested, try again later")
		}
		return c.Next()
	}
}
