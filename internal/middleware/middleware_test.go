package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/auth"
	"github.com/giftgate/giftgate/internal/logging"
	"github.com/giftgate/giftgate/internal/session"
)

func doRequest(t *testing.T, app *fiber.App, method, path, client string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if client != "" {
		req.Header.Set(auth.ClientIDHeader, client)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestCodeRateLimit(t *testing.T) {
	cache, mr := setupRedis(t)
	app := fiber.New()
	app.Post("/code", CodeRateLimit(cache, 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	for i := 0; i < 2; i++ {
		if status := doRequest(t, app, fiber.MethodPost, "/code", "client-1"); status != fiber.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i, status)
		}
	}
	if status := doRequest(t, app, fiber.MethodPost, "/code", "client-1"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if status := doRequest(t, app, fiber.MethodPost, "/code", "client-2"); status != fiber.StatusAccepted {
		t.Fatalf("limits must be per client, got %d", status)
	}
	if ttl := mr.TTL(codeRateLimitPrefix + "client-1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected a one minute window, got %s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if status := doRequest(t, app, fiber.MethodPost, "/code", "client-1"); status != fiber.StatusAccepted {
		t.Fatalf("window should reset, got %d", status)
	}
}

func TestCodeRateLimitFailsOpen(t *testing.T) {
	cache, mr := setupRedis(t)
	app := fiber.New()
	app.Post("/code", CodeRateLimit(cache, 1, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	mr.Close()
	for i := 0; i < 3; i++ {
		if status := doRequest(t, app, fiber.MethodPost, "/code", "client-1"); status != fiber.StatusAccepted {
			t.Fatalf("expected fail-open, got %d", status)
		}
	}

	noCache := fiber.New()
	noCache.Post("/code", CodeRateLimit(nil, 1, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	if status := doRequest(t, noCache, fiber.MethodPost, "/code", "client-1"); status != fiber.StatusAccepted {
		t.Fatalf("expected pass-through without redis, got %d", status)
	}
}

func TestSessionGate(t *testing.T) {
	repo := session.NewMemoryRepository()
	registry := auth.NewRegistry(auth.Options{Repo: repo, Logger: logging.Discard()})

	app := fiber.New()
	app.Get("/private", SessionGate(registry), func(c *fiber.Ctx) error {
		id, _ := c.Locals("client_id").(string)
		if _, ok := c.Locals("authorizer").(*auth.Manager); !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "missing authorizer")
		}
		return c.SendString(id)
	})

	if status := doRequest(t, app, fiber.MethodGet, "/private", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without client id, got %d", status)
	}
	if status := doRequest(t, app, fiber.MethodGet, "/private", "client-1"); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}

	fields := session.New("79991234567", time.Now().Add(-time.Hour)).Fields()
	if err := repo.Save(context.Background(), "client-1", fields); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if status := doRequest(t, app, fiber.MethodGet, "/private", "client-1"); status != fiber.StatusOK {
		t.Fatalf("expected 200 with session, got %d", status)
	}

	expired := session.New("79991234567", time.Now().Add(-31*24*time.Hour)).Fields()
	if err := repo.Save(context.Background(), "client-1", expired); err != nil {
		t.Fatalf("seed expired session: %v", err)
	}
	if status := doRequest(t, app, fiber.MethodGet, "/private", "client-1"); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 once expired, got %d", status)
	}
}

func TestSessionGateKeepsClientsApart(t *testing.T) {
	registry := auth.NewRegistry(auth.Options{
		Repo:   session.NewMemoryRepository(),
		Logger: logging.Discard(),
		Codes:  func() (string, error) { return "123456", nil },
	})
	h := auth.NewHandler(registry)

	app := fiber.New()
	app.Post("/phone", h.ManualPhone)
	app.Post("/verify", h.Verify)
	app.Get("/private", SessionGate(registry), func(c *fiber.Ctx) error {
		id, _ := c.Locals("client_id").(string)
		return c.SendString(id)
	})

	post := func(path, client, body string) int {
		req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(auth.ClientIDHeader, client)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if status := post("/phone", "tg-A", `{"digits":"9991234567"}`); status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if status := post("/verify", "tg-A", `{"code":"123456"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	for i := 0; i < 20; i++ {
		if status := doRequest(t, app, fiber.MethodGet, "/private", "tg-B"); status != fiber.StatusUnauthorized {
			t.Fatalf("round %d: unverified client passed the gate with %d", i, status)
		}
		req := httptest.NewRequest(fiber.MethodGet, "/private", nil)
		req.Header.Set(auth.ClientIDHeader, "tg-A")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK || string(body) != "tg-A" {
			t.Fatalf("round %d: expected tg-A through the gate, got %d %q", i, resp.StatusCode, body)
		}
	}
	if registry.Len() != 1 {
		t.Fatalf("expected only the verified client to be kept, got %d managers", registry.Len())
	}
}

func TestSessionGateDoesNotRetainStrangers(t *testing.T) {
	registry := auth.NewRegistry(auth.Options{Repo: session.NewMemoryRepository(), Logger: logging.Discard()})
	app := fiber.New()
	app.Get("/private", SessionGate(registry), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 1000; i++ {
		if status := doRequest(t, app, fiber.MethodGet, "/private", fmt.Sprintf("stranger-%d", i)); status != fiber.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
	}
	if registry.Len() != 0 {
		t.Fatalf("rejected clients must not be retained, got %d managers", registry.Len())
	}
}

func TestRequestIDAndAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "debug")

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })

	req := httptest.NewRequest(fiber.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "req-123")
	req.Header.Set(auth.ClientIDHeader, "client-9")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) != "req-123" {
		t.Fatalf("request id must be echoed, got %q", resp.Header.Get(requestIDHeader))
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("request id must be generated when absent")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two audit lines, got %d: %s", len(lines), buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if first["request_id"] != "req-123" || first["client_id"] != "client-9" || first["status"] != float64(200) {
		t.Fatalf("unexpected audit line %v", first)
	}
	if second["level"] != "WARN" || second["status"] != float64(404) {
		t.Fatalf("client errors should log at warn with the error status, got %v", second)
	}
}
