package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Gateway providers.
const (
	ProviderStripe = "stripe"
	ProviderMock   = "mock"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	FrontendURL  string `usage:"Base URL of the storefront the checkout redirects back to (or URL)" flag:"frontend-url"`
	APIKeyPepper string `usage:"HMAC pepper for admin API key hashing" flag:"api-key-pepper"`
	JWTSecret    string `usage:"HS256 secret of user tokens" flag:"jwt-secret"`
	Gateway      GatewayConfig
	Stripe       StripeConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// GatewayConfig selects the payment gateway.
type GatewayConfig struct {
	Provider string `default:"stripe" usage:"Payment gateway: stripe or mock"`
	Currency string `default:"inr" usage:"ISO currency of prices and coupons"`
}

// StripeConfig configures the Stripe client.
type StripeConfig struct {
	SecretKey string        `usage:"Stripe secret key (or STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	APIURL    string        `usage:"Override of the Stripe API base URL" flag:"stripe-api-url"`
	Timeout   time.Duration `default:"10s" usage:"Stripe request timeout" flag:"stripe-timeout"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Rate  float64 `default:"5" usage:"Sustained requests per second per client, 0 disables"`
	Burst int     `default:"20" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the unprefixed variables hosting platforms set
// (PORT, DATABASE_URL, URL, STRIPE_SECRET_KEY) onto the configuration.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.FrontendURL, "URL")
	fallback(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")

	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	c.Gateway.Provider = strings.ToLower(strings.TrimSpace(c.Gateway.Provider))
	c.Gateway.Currency = strings.ToLower(strings.TrimSpace(c.Gateway.Currency))
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	case c.FrontendURL == "":
		return errors.New("frontend URL is required: set ORDERS_FRONTEND_URL or URL")
	case c.JWTSecret == "":
		return errors.New("jwt secret is required: set ORDERS_JWT_SECRET")
	case c.Gateway.Currency == "":
		return errors.New("gateway currency is required")
	}
	switch c.Gateway.Provider {
	case ProviderMock:
	case ProviderStripe:
		if c.Stripe.SecretKey == "" {
			return errors.New("stripe secret key is required: set ORDERS_STRIPE_SECRET_KEY or STRIPE_SECRET_KEY")
		}
	default:
		return errors.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}
	return nil
}
