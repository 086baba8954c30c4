package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	pkgconfig "github.com/utafrali/agromarket-storefront/pkg/config"
)

// DevSessionSecret is the development default and is refused elsewhere.
const DevSessionSecret = "dev-only-storefront-session-secret-change-me"

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Marketplace backend
	BackendBaseURL string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:5000/api"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	// Sessions
	SessionSecret   string `env:"SESSION_SECRET" envDefault:"dev-only-storefront-session-secret-change-me"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"168"`
	CookieSecure    bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka. Empty disables event publishing and multi-instance ticket fan-out.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	InstanceID   string   `env:"INSTANCE_ID" envDefault:""`

	// Pricing
	Currency    string          `env:"CURRENCY" envDefault:"LKR"`
	FeeStandard decimal.Decimal `env:"FEE_STANDARD" envDefault:"200"`
	FeeExpress  decimal.Decimal `env:"FEE_EXPRESS" envDefault:"500"`

	// Workflows
	CheckoutDraftTTL  time.Duration `env:"CHECKOUT_DRAFT_TTL" envDefault:"30m"`
	UploadConcurrency int           `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	// Edge
	RateLimitRPS     int      `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst   int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSOrigins      []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	OpsAllowedCIDRs  []string `env:"OPS_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
	PprofEnabled     bool     `env:"PPROF_ENABLED" envDefault:"false"`
	CatalogCacheSecs int      `env:"CATALOG_CACHE_SECONDS" envDefault:"60"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// CurrencyUnit returns the parsed ISO 4217 currency. validate guarantees
// it parses.
func (c *Config) CurrencyUnit() currency.Unit {
	return currency.MustParseISO(c.Currency)
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute http(s) URL, got %q", c.BackendBaseURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if c.SessionSecret == DevSessionSecret && !c.IsDevelopment() {
		return fmt.Errorf("SESSION_SECRET must be set outside development")
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be at least 1")
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		return fmt.Errorf("CURRENCY %q is not an ISO 4217 code: %w", c.Currency, err)
	}
	if c.FeeStandard.IsNegative() || c.FeeExpress.IsNegative() {
		return fmt.Errorf("delivery fees must not be negative")
	}
	if c.CheckoutDraftTTL < time.Minute {
		return fmt.Errorf("CHECKOUT_DRAFT_TTL must be at least 1m")
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}
	if c.RateLimitRPS < 1 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}
