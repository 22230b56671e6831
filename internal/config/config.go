package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "GiftGate"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultSessionMaxAge   = 30 * 24 * time.Hour
	defaultCodeTTL         = 60 * time.Second
	defaultContactTimeout  = 10 * time.Second
	defaultMarketplaceURL  = "https://app-api.xgift.tg"
	defaultMarketTimeout   = 10 * time.Second
	defaultImageBaseURL    = "https://api.changes.tg/model/collection"
	defaultLinkBaseURL     = "https://t.me/nft"
	defaultVerifyEndpoint  = "/api/verify-telegram-data"
	defaultNSQTopic        = "bot.verification"
	defaultCodeRateLimit   = 5
	defaultInitDataMaxAge  = 24 * time.Hour
	defaultVerifyTimeout   = 10 * time.Second
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Session backends accepted by SESSION_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	NSQDAddr       string
	NSQTopic       string
	ShutdownPeriod time.Duration

	SessionBackend string
	SessionMaxAge  time.Duration
	CodeTTL        time.Duration
	ContactTimeout time.Duration
	CodeRateLimit  int

	MarketplaceBaseURL string
	MarketplaceTimeout time.Duration
	ImageBaseURL       string
	LinkBaseURL        string

	BotToken       string
	InitDataMaxAge time.Duration
	// RequireInitData rejects API calls that carry no signed initData.
	RequireInitData bool
	VerifyEndpoint  string
	VerifyTimeout   time.Duration
	VerifyFailOpen  bool
}

// Load reads configuration values from the environment and populates a Config instance.
// In development environments a local .env file is honoured when present.
func Load() (Config, error) {
	if IsDev(getEnv("APP_ENV", defaultAppEnv)) {
		_ = godotenv.Load()
	}

	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		NSQDAddr:           os.Getenv("NSQD_ADDR"),
		NSQTopic:           getEnv("NSQ_TOPIC", defaultNSQTopic),
		ShutdownPeriod:     defaultShutdownDelay,
		SessionBackend:     strings.ToLower(os.Getenv("SESSION_BACKEND")),
		MarketplaceBaseURL: strings.TrimRight(getEnv("MARKETPLACE_BASE_URL", defaultMarketplaceURL), "/"),
		ImageBaseURL:       strings.TrimRight(getEnv("IMAGE_BASE_URL", defaultImageBaseURL), "/"),
		LinkBaseURL:        strings.TrimRight(getEnv("LINK_BASE_URL", defaultLinkBaseURL), "/"),
		BotToken:           os.Getenv("BOT_TOKEN"),
		VerifyEndpoint:     getEnv("VERIFY_ENDPOINT", defaultVerifyEndpoint),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	var err error
	if cfg.SessionMaxAge, err = getDuration("SESSION_MAX_AGE", defaultSessionMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.CodeTTL, err = getDuration("CODE_TTL", defaultCodeTTL); err != nil {
		return Config{}, err
	}
	if cfg.ContactTimeout, err = getDuration("CONTACT_TIMEOUT", defaultContactTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MarketplaceTimeout, err = getDuration("MARKETPLACE_TIMEOUT", defaultMarketTimeout); err != nil {
		return Config{}, err
	}
	if cfg.InitDataMaxAge, err = getDuration("INIT_DATA_MAX_AGE", defaultInitDataMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.VerifyTimeout, err = getDuration("VERIFY_TIMEOUT", defaultVerifyTimeout); err != nil {
		return Config{}, err
	}

	cfg.CodeRateLimit = defaultCodeRateLimit
	if v := os.Getenv("CODE_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CODE_RATE_LIMIT: %w", err)
		}
		cfg.CodeRateLimit = n
	}

	cfg.VerifyFailOpen = true
	if v := os.Getenv("VERIFY_FAIL_OPEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VERIFY_FAIL_OPEN: %w", err)
		}
		cfg.VerifyFailOpen = b
	}

	cfg.RequireInitData = !IsDev(cfg.AppEnv)
	if v := os.Getenv("REQUIRE_INIT_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REQUIRE_INIT_DATA: %w", err)
		}
		cfg.RequireInitData = b
	}

	if cfg.SessionBackend == "" {
		switch {
		case cfg.RedisURL != "":
			cfg.SessionBackend = BackendRedis
		case cfg.DatabaseURL != "":
			cfg.SessionBackend = BackendPostgres
		default:
			cfg.SessionBackend = BackendMemory
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.SessionBackend {
	case BackendMemory:
		if !IsDev(c.AppEnv) {
			return fmt.Errorf("SESSION_BACKEND=memory is only allowed in development")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set for the redis session backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if !IsDev(c.AppEnv) && c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether env names a local development environment.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
