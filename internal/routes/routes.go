package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"

	"github.com/giftgate/giftgate/internal/auth"
	"github.com/giftgate/giftgate/internal/config"
	"github.com/giftgate/giftgate/internal/gifts"
	"github.com/giftgate/giftgate/internal/logging"
	"github.com/giftgate/giftgate/internal/middleware"
	"github.com/giftgate/giftgate/internal/notification"
	"github.com/giftgate/giftgate/internal/session"
	"github.com/giftgate/giftgate/internal/telegram"
)

const (
	verifyTelegramDataPath = "/api/verify-telegram-data"
	idempotencyTTL         = 10 * time.Minute
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Producer *nsq.Producer
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	repo, err := sessionRepository(d)
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Producer != nil {
		notifier = notification.NewNSQNotifier(d.Producer, d.Cfg.NSQTopic)
	}

	telegramHandler := telegram.NewHandler(d.Cfg.BotToken, d.Cfg.InitDataMaxAge, d.Logger)
	var verifier auth.ContactVerifier = telegramHandler
	if isRemote(d.Cfg.VerifyEndpoint) {
		verifier = telegram.NewVerifier(d.Cfg.VerifyEndpoint, d.Cfg.VerifyFailOpen, d.Cfg.VerifyTimeout, d.Logger)
	}

	registry := auth.NewRegistry(auth.Options{
		Repo:           repo,
		Host:           telegram.NewBridge(notifier),
		Verifier:       verifier,
		Logger:         d.Logger,
		MaxAge:         d.Cfg.SessionMaxAge,
		CodeTTL:        d.Cfg.CodeTTL,
		ContactTimeout: d.Cfg.ContactTimeout,
		LogCodes:       config.IsDev(d.Cfg.AppEnv),
	})

	giftService := gifts.NewService(
		gifts.NewClient(d.Cfg.MarketplaceBaseURL, d.Cfg.MarketplaceTimeout),
		gifts.Normalizer{ImageBaseURL: d.Cfg.ImageBaseURL, LinkBaseURL: d.Cfg.LinkBaseURL},
		d.Logger,
	)

	app.Post(verifyTelegramDataPath, telegramHandler.VerifyTelegramData)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	bind := middleware.InitData(d.Cfg.BotToken, d.Cfg.InitDataMaxAge, d.Cfg.RequireInitData, d.Logger)
	RegisterAuthRoutes(api, auth.NewHandler(registry), bind,
		middleware.CodeRateLimit(d.Cache, d.Cfg.CodeRateLimit, d.Logger),
		middleware.Idempotency(d.Cache, idempotencyTTL, d.Logger),
	)
	RegisterGiftRoutes(api, gifts.NewHandler(giftService), bind, middleware.SessionGate(registry))

	return nil
}

func sessionRepository(d Deps) (session.Repository, error) {
	switch d.Cfg.SessionBackend {
	case config.BackendRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required for the redis session backend")
		}
		return session.NewRedisRepository(d.Cache, d.Cfg.SessionMaxAge), nil
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required for the postgres session backend")
		}
		return session.NewPostgresRepository(d.DB), nil
	case config.BackendMemory, "":
		if !config.IsDev(d.Cfg.AppEnv) {
			return nil, fmt.Errorf("memory sessions are not allowed when APP_ENV=%s", d.Cfg.AppEnv)
		}
		return session.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", d.Cfg.SessionBackend)
	}
}

func isRemote(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}
