package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8003, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 168, cfg.CartTTL)
	assert.Equal(t, int64(3000), cfg.ShippingFee)
	assert.Equal(t, "http://localhost:8001", cfg.ProductServiceURL)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("CART_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_NegativeShippingFee(t *testing.T) {
	t.Setenv("SHIPPING_FEE_CENTS", "-5")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "shipping fee")
}

func TestLoad_CustomDownstreamURLs(t *testing.T) {
	t.Setenv("DISCOUNT_SERVICE_URL", "http://discount.internal:9000")
	t.Setenv("ORDER_SERVICE_URL", "http://orders.internal:9001")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://discount.internal:9000", cfg.DiscountServiceURL)
	assert.Equal(t, "http://orders.internal:9001", cfg.OrderServiceURL)
}

func TestLoad_CustomCartTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "24")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 24, cfg.CartTTL)
}

func TestLoad_InvalidCartTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cart TTL")
}
