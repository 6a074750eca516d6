package config

import (
	"log/slog"
	"net/url"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/service/conversion"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Event bus drivers.
const (
	EventBusMemory      = "memory"
	EventBusMemoryAsync = "memory-async"
	EventBusRedis       = "redis"
	EventBusKafka       = "kafka"
)

// Rate cache drivers.
const (
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// Load reads configuration from the environment. Each path is resolved with
// FindEnvFile and the first one found is loaded into the environment before
// processing; without paths the working directory's .env is tried. Variables
// already set in the environment win over file values.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	if len(envFilePath) == 0 {
		envFilePath = []string{".env"}
	}
	for _, path := range envFilePath {
		found, err := FindEnvFile(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}
		if err := godotenv.Load(found); err != nil {
			logger.Error("Failed to load environment file", "path", found, "error", err)
			continue
		}
		logger.Info("Loaded environment file", "path", found)
		return loadFromEnv()
	}
	logger.Info("No environment file found, using process environment")
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, domain.Wrap(domain.KindInvalidConfig, err, "process environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Default().Info("App config loaded",
		"env", cfg.Env,
		"server_port", cfg.Server.Port,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"exchange_base", cfg.Exchange.Base,
		"exchange_cache", cfg.Exchange.CacheDriver,
		"exchange_cache_ttl", cfg.Exchange.CacheTTL,
		"fee_rate", cfg.Fee.Rate,
		"fee_mode", cfg.Fee.Mode,
		"rounding", cfg.Rounding.Mode,
		"event_bus", cfg.EventBus.Driver,
		"redis_url", maskURL(cfg.Redis.URL),
		"exchangerate_api_url", cfg.Sources.ExchangeRateApi.ApiUrl,
		"exchangerate_api_key", maskValue(cfg.Sources.ExchangeRateApi.ApiKey),
		"primary_source_token", maskValue(cfg.Sources.Primary.Token),
		"jwt_secret", maskValue(cfg.Auth.Jwt.Secret),
	)
	return &cfg, nil
}

// Validate checks values envconfig cannot check by itself.
func (c *App) Validate() error {
	if !money.ParseCode(c.Exchange.Base).IsValid() {
		return domain.Errorf(domain.KindInvalidConfig, "exchange base %q is not a currency code", c.Exchange.Base)
	}
	switch c.Exchange.CacheDriver {
	case CacheLRU, CacheRedis:
	default:
		return domain.Errorf(domain.KindInvalidConfig, "unknown cache driver %q", c.Exchange.CacheDriver)
	}
	if c.Exchange.CacheSize <= 0 {
		return domain.Errorf(domain.KindInvalidConfig, "cache size must be positive")
	}
	if c.Fee.Rate.IsNegative() || c.Fee.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Errorf(domain.KindInvalidConfig, "fee rate %s outside [0, 1)", c.Fee.Rate)
	}
	if _, err := conversion.ParseFeeMode(c.Fee.Mode); err != nil {
		return err
	}
	if _, err := money.ParseRoundingMode(c.Rounding.Mode); err != nil {
		return domain.Wrap(domain.KindInvalidConfig, err, "rounding")
	}
	switch c.EventBus.Driver {
	case "", EventBusMemory, EventBusMemoryAsync, EventBusRedis, EventBusKafka:
	default:
		return domain.Errorf(domain.KindInvalidConfig, "unknown event bus driver %q", c.EventBus.Driver)
	}
	return nil
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func maskValue(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
