package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/Vuongsinguyen/VyBrows-Store/pkg/config"
)

// Cart store backends.
const (
	CartStoreCookie = "cookie"
	CartStoreRedis  = "redis"
)

// Payment providers.
const (
	PaymentProviderMock   = "mock"
	PaymentProviderPayPal = "paypal"
)

// Config holds all configuration for the storefront server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	SiteURL            string   `env:"SITE_URL" envDefault:"http://localhost:3000"`
	AdminAllowedCIDRs  []string `env:"ADMIN_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Checkout rate limit per client address; RPS 0 disables it.
	CheckoutRateLimitRPS   float64 `env:"CHECKOUT_RATE_LIMIT_RPS" envDefault:"2"`
	CheckoutRateLimitBurst int     `env:"CHECKOUT_RATE_LIMIT_BURST" envDefault:"10"`

	// Catalog
	CatalogPath string `env:"CATALOG_PATH" envDefault:"data/products.json"`

	// Cart persistence
	CartStore string `env:"CART_STORE" envDefault:"cookie"`
	CartTTL   int    `env:"CART_TTL_HOURS" envDefault:"168"`

	// Redis (CART_STORE=redis)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Order log; in-memory when empty.
	DatabaseURL string `env:"DATABASE_URL"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Checkout gateways
	LedgerURL          string `env:"LEDGER_URL"`
	PaymentProvider    string `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	PayPalClientID     string `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
	PayPalEnvironment  string `env:"PAYPAL_ENVIRONMENT" envDefault:"sandbox"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
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

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}
	switch c.CartStore {
	case CartStoreCookie, CartStoreRedis:
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreCookie, CartStoreRedis, c.CartStore)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("CART_TTL_HOURS must be positive, got %d", c.CartTTL)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	switch c.PaymentProvider {
	case PaymentProviderMock:
	case PaymentProviderPayPal:
		if c.PayPalClientID == "" || c.PayPalClientSecret == "" {
			return fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required for the paypal provider")
		}
		if c.PayPalEnvironment != "sandbox" && c.PayPalEnvironment != "production" {
			return fmt.Errorf("PAYPAL_ENVIRONMENT must be sandbox or production, got %q", c.PayPalEnvironment)
		}
	default:
		return fmt.Errorf("PAYMENT_PROVIDER must be %q or %q, got %q", PaymentProviderMock, PaymentProviderPayPal, c.PaymentProvider)
	}
	if c.CheckoutRateLimitRPS < 0 {
		return fmt.Errorf("CHECKOUT_RATE_LIMIT_RPS must not be negative, got %v", c.CheckoutRateLimitRPS)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
