package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	ContentStoreURL    string
	ContentStoreToken  string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string
	Currency           string

	// Pricing policy. Amounts are minor units, rates in basis points.
	TaxBps           int
	FlatShippingFee  int64
	FreeShippingOver int64
	BulkDiscountBps  int
	BulkDiscountOver int64

	CartTTL         time.Duration
	CatalogCacheTTL time.Duration

	SubmitRateWindow time.Duration
	SubmitRateMax    int

	OutboundTimeout    time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent float64
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	QueueRedisPrefix string
	QueueMaxAttempts int
	EmailEnabled     bool
	EmailFrom        string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             stringOr(k.String("APP_ENV"), "development"),
		Port:               stringOr(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		ContentStoreURL:    strings.TrimRight(strings.TrimSpace(k.String("CONTENT_STORE_URL")), "/"),
		ContentStoreToken:  k.String("CONTENT_STORE_TOKEN"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Currency:           stringOr(k.String("CURRENCY"), "USD"),

		TaxBps:           intOr(k.String("PRICING_TAX_BPS"), 1000),
		FlatShippingFee:  int64Or(k.String("PRICING_FLAT_SHIPPING_FEE"), 100_00),
		FreeShippingOver: int64Or(k.String("PRICING_FREE_SHIPPING_OVER"), 1000_00),
		BulkDiscountBps:  intOr(k.String("PRICING_BULK_DISCOUNT_BPS"), 500),
		BulkDiscountOver: int64Or(k.String("PRICING_BULK_DISCOUNT_OVER"), 2000_00),

		CartTTL:         durationOr(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL: durationOr(k.String("CATALOG_CACHE_TTL"), "5m"),

		SubmitRateWindow: durationOr(k.String("SUBMIT_RATE_WINDOW"), "1m"),
		SubmitRateMax:    intOr(k.String("SUBMIT_RATE_MAX"), 5),

		OutboundTimeout:    durationOr(k.String("OUTBOUND_TIMEOUT"), "10s"),
		RetryBase:          durationOr(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   intOr(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: floatOr(k.String("RETRY_JITTER_PERCENT"), 0.2),
		CircuitMinRequests: intOr(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate: floatOr(k.String("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     durationOr(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		QueueRedisPrefix: stringOr(k.String("QUEUE_REDIS_PREFIX"), "storefront"),
		QueueMaxAttempts: intOr(k.String("QUEUE_MAX_ATTEMPTS"), 6),
		EmailEnabled:     boolFrom(k.String("EMAIL_ENABLED")),
		EmailFrom:        stringOr(k.String("EMAIL_FROM"), "ShopEase <noreply@shopease.dev>"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ContentStoreURL == "" {
		return nil, errors.New("CONTENT_STORE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func stringOr(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func durationOr(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseOr[T any](value string, fallback T, parse func(string) (T, error)) T {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := parse(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOr(value string, fallback int) int {
	return parseOr(value, fallback, strconv.Atoi)
}

func int64Or(value string, fallback int64) int64 {
	return parseOr(value, fallback, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

func floatOr(value string, fallback float64) float64 {
	return parseOr(value, fallback, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func boolFrom(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
