package repository

import (
	"context"

	"github.com/utafrali/storefront-cart/internal/domain"
)

// CartRepository is the durable mirror of the in-memory cart store.
type CartRepository interface {
	// Get retrieves the persisted line items for a user.
	// Returns pkg/errors.ErrNotFound when no cart has been persisted.
	Get(ctx context.Context, userID string) ([]domain.LineItem, error)

	// Save overwrites the persisted line items for a user.
	Save(ctx context.Context, userID string, items []domain.LineItem) error

	// Delete removes the persisted cart for a user.
	Delete(ctx context.Context, userID string) error
}
