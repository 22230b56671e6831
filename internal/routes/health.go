package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a readiness endpoint covering every configured backend.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{"session_backend": d.Cfg.SessionBackend}
		healthy := true
		check := func(name string, ping func() error) {
			status := "ok"
			if err := ping(); err != nil {
				status = err.Error()
				healthy = false
			}
			checks[name] = status
		}
		if d.DB != nil {
			check("postgres", func() error { return d.DB.Ping(ctx) })
		}
		if d.Cache != nil {
			check("redis", func() error { return d.Cache.Ping(ctx).Err() })
		}
		if d.Producer != nil {
			check("nsq", d.Producer.Ping)
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
