package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-cart/internal/domain"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCartRepository(client, 24*time.Hour), mr
}

func sampleItems() []domain.LineItem {
	return []domain.LineItem{
		{ProductID: "prod-1", Quantity: 2, Size: "M", Color: "black"},
		{ProductID: "prod-2", Quantity: 1},
	}
}

func TestCartRepository_SaveAndGet_RoundTrip(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user-1", sampleItems()))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleItems(), got)
}

func TestCartRepository_Get_Missing(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCartRepository_Save_LegacyFieldNames(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user-1", sampleItems()))

	raw, err := mr.Get("cart:user-1")
	require.NoError(t, err)
	// The persisted schema names the product id field "id".
	assert.Contains(t, raw, `"id":"prod-1"`)
	assert.NotContains(t, raw, "product_id")
}

func TestCartRepository_Get_LegacyBlob(t *testing.T) {
	repo, mr := setupTestRedis(t)

	// A blob written by the previous frontend: no color field at all.
	require.NoError(t, mr.Set("cart:user-1", `[{"id":"prod-9","quantity":3,"size":"L"}]`))

	got, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.LineItem{ProductID: "prod-9", Quantity: 3, Size: "L"}, got[0])
}

func TestCartRepository_Save_AppliesTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, repo.Save(context.Background(), "user-1", sampleItems()))
	assert.Greater(t, mr.TTL("cart:user-1"), time.Duration(0))
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user-1", sampleItems()))
	require.NoError(t, repo.Delete(ctx, "user-1"))

	assert.False(t, mr.Exists("cart:user-1"))

	// Deleting an absent cart is not an error.
	assert.NoError(t, repo.Delete(ctx, "user-1"))
}

func TestCartRepository_Save_EmptyCart(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user-1", nil))

	raw, err := mr.Get("cart:user-1")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
