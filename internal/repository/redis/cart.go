package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-cart/internal/domain"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
)

const keyPrefix = "cart:"

// persistedItem is the legacy storage schema for a cart row. The product ID
// is stored under "id" for backward compatibility with carts written by the
// previous frontend; do not rename the field.
type persistedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Color    string `json:"color,omitempty"`
}

// CartRepository persists each user's cart as a single JSON array blob.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the persisted line items for a user.
func (r *CartRepository) Get(ctx context.Context, userID string) ([]domain.LineItem, error) {
	data, err := r.client.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var rows []persistedItem
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	items := make([]domain.LineItem, len(rows))
	for i, row := range rows {
		items[i] = domain.LineItem{
			ProductID: row.ID,
			Quantity:  row.Quantity,
			Size:      row.Size,
			Color:     row.Color,
		}
	}

	return items, nil
}

// Save overwrites the persisted cart blob for a user with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, userID string, items []domain.LineItem) error {
	rows := make([]persistedItem, len(items))
	for i, item := range items {
		rows[i] = persistedItem{
			ID:       item.ProductID,
			Quantity: item.Quantity,
			Size:     item.Size,
			Color:    item.Color,
		}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+userID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes the persisted cart for a user.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
