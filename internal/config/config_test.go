package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"CONTENT_STORE_URL": "https://cms.example.com",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, 1000, cfg.TaxBps)
	require.Equal(t, int64(100_00), cfg.FlatShippingFee)
	require.Equal(t, int64(1000_00), cfg.FreeShippingOver)
	require.Equal(t, 500, cfg.BulkDiscountBps)
	require.Equal(t, int64(2000_00), cfg.BulkDiscountOver)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, time.Minute, cfg.SubmitRateWindow)
	require.Equal(t, 5, cfg.SubmitRateMax)
	require.Equal(t, 3, cfg.RetryMaxAttempts)
	require.Equal(t, "storefront", cfg.QueueRedisPrefix)
	require.False(t, cfg.EmailEnabled)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadRequiresContentStoreURL(t *testing.T) {
	env := baseEnv()
	env["CONTENT_STORE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "CONTENT_STORE_URL")
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9090"
	env["PRICING_TAX_BPS"] = "825"
	env["CART_TTL"] = "48h"
	env["EMAIL_ENABLED"] = "true"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example.com, https://admin.example.com"
	env["CONTENT_STORE_URL"] = "https://cms.example.com/"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 825, cfg.TaxBps)
	require.Equal(t, 48*time.Hour, cfg.CartTTL)
	require.True(t, cfg.EmailEnabled)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "https://cms.example.com", cfg.ContentStoreURL)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_BPS"] = "lots"
	env["CART_TTL"] = "not-a-duration"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.TaxBps)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
}

func TestHTTPAddr(t *testing.T) {
	require.Equal(t, ":8080", (&Config{}).HTTPAddr())
	require.Equal(t, ":9090", (&Config{Port: "9090"}).HTTPAddr())
	require.Equal(t, ":9090", (&Config{Port: ":9090"}).HTTPAddr())
}
