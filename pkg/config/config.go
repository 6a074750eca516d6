package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[fxengine]"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"fxengine:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// Exchange configures the rate provider, its cache and the arbitrage scan.
type Exchange struct {
	Base                 string          `envconfig:"BASE" default:"USD"`
	CacheDriver          string          `envconfig:"CACHE_DRIVER" default:"lru"`
	CacheSize            int             `envconfig:"CACHE_SIZE" default:"1024"`
	CacheTTL             time.Duration   `envconfig:"CACHE_TTL" default:"5m"`
	SourceTimeout        time.Duration   `envconfig:"SOURCE_TIMEOUT" default:"2s"`
	MaxConcurrent        int64           `envconfig:"MAX_CONCURRENT" default:"8"`
	BreakerThreshold     int             `envconfig:"BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown      time.Duration   `envconfig:"BREAKER_COOLDOWN" default:"30s"`
	ArbitrageThreshold   decimal.Decimal `envconfig:"ARBITRAGE_THRESHOLD" default:"1.0"`
	ArbitragePairs       []string        `envconfig:"ARBITRAGE_PAIRS" default:"USD:EUR,USD:GBP,USD:JPY,EUR:GBP,BTC:USD"`
	ArbitrageConcurrency int             `envconfig:"ARBITRAGE_CONCURRENCY" default:"4"`
	CheckoutConcurrency  int             `envconfig:"CHECKOUT_CONCURRENCY" default:"4"`
}

// HTTPSource is a generic JSON rate endpoint. A source with an empty URL is
// disabled.
type HTTPSource struct {
	URL             string        `envconfig:"URL"`
	Token           string        `envconfig:"TOKEN"`
	RateField       string        `envconfig:"RATE_FIELD" default:"rate"`
	ObservedAtField string        `envconfig:"OBSERVED_AT_FIELD" default:"observed_at"`
	TTL             time.Duration `envconfig:"TTL"`
}

//revive:disable
type ExchangeRateApi struct {
	ApiKey string        `envconfig:"API_KEY"`
	ApiUrl string        `envconfig:"API_URL" default:"https://v6.exchangerate-api.com/v6"`
	TTL    time.Duration `envconfig:"TTL" default:"1h"`
}

//revive:enable

type StaticSource struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Rates   string `envconfig:"RATES"`
}

// Sources lists the rate sources in fallback order: primary, secondary,
// tertiary, exchangerate-api, crypto, static.
type Sources struct {
	Primary         *HTTPSource      `envconfig:"PRIMARY"`
	Secondary       *HTTPSource      `envconfig:"SECONDARY"`
	Tertiary        *HTTPSource      `envconfig:"TERTIARY"`
	ExchangeRateApi *ExchangeRateApi `envconfig:"EXCHANGERATE"`
	Crypto          *HTTPSource      `envconfig:"CRYPTO"`
	Static          *StaticSource    `envconfig:"STATIC"`
}

type Fee struct {
	Rate decimal.Decimal `envconfig:"RATE" default:"0.001"`
	Mode string          `envconfig:"MODE" default:"deduct"`
}

type Rounding struct {
	Mode string `envconfig:"MODE" default:"half_up"`
}

type Format struct {
	DefaultLocale string `envconfig:"DEFAULT_LOCALE" default:"en-US"`
}

// Fixtures overrides the embedded static tables. Empty paths use the
// embedded copies.
type Fixtures struct {
	Currencies  string `envconfig:"CURRENCIES"`
	Locales     string `envconfig:"LOCALES"`
	Conventions string `envconfig:"CONVENTIONS"`
	TaxRules    string `envconfig:"TAX_RULES"`
	Regions     string `envconfig:"REGIONS"`
}

type EventBus struct {
	Driver           string        `envconfig:"DRIVER" default:"memory-async"`
	QueueSize        int           `envconfig:"QUEUE_SIZE" default:"100"`
	RedisURL         string        `envconfig:"REDIS_URL"`
	KafkaBrokers     string        `envconfig:"KAFKA_BROKERS"`
	KafkaGroupID     string        `envconfig:"KAFKA_GROUP_ID" default:"fxengine"`
	KafkaTopicPrefix string        `envconfig:"KAFKA_TOPIC_PREFIX" default:"fxengine.events"`
	KafkaSASLUser    string        `envconfig:"KAFKA_SASL_USERNAME"`
	KafkaSASLPass    string        `envconfig:"KAFKA_SASL_PASSWORD"`
	KafkaTLSEnabled  bool          `envconfig:"KAFKA_TLS_ENABLED" default:"false"`
	DLQRetryInterval time.Duration `envconfig:"DLQ_RETRY_INTERVAL" default:"5m"`
	DLQBatchSize     int           `envconfig:"DLQ_BATCH_SIZE" default:"10"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

// Auth protects the admin routes. An empty JWT secret disables them.
type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	Redis     *Redis     `envconfig:"REDIS"`
	Exchange  *Exchange  `envconfig:"EXCHANGE"`
	Sources   *Sources   `envconfig:"SOURCES"`
	Fee       *Fee       `envconfig:"FEE"`
	Rounding  *Rounding  `envconfig:"ROUNDING"`
	Format    *Format    `envconfig:"FORMAT"`
	Fixtures  *Fixtures  `envconfig:"FIXTURES"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
	Auth      *Auth      `envconfig:"AUTH"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
}
