package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/internal/repository"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
)

// CartStore holds the authoritative in-memory cart for each user session and
// mirrors every mutation to the repository. Persistence failures never roll
// back the in-memory mutation: the store logs them and returns
// StorageUnavailable alongside the updated cart, and memory stays the source
// of truth for the rest of the session.
//
// The store is a pure data structure: it performs no stock-ceiling or size
// validation. That is the controller's job.
type CartStore struct {
	repo   repository.CartRepository
	logger *slog.Logger

	mu     sync.Mutex
	carts  map[string]*domain.Cart
	loaded map[string]bool
}

// New creates a cart store backed by the given repository.
func New(repo repository.CartRepository, logger *slog.Logger) *CartStore {
	return &CartStore{
		repo:   repo,
		logger: logger,
		carts:  make(map[string]*domain.Cart),
		loaded: make(map[string]bool),
	}
}

// Get returns a copy of the user's cart, loading it from storage on first access.
func (s *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, userID)
	return cart.Clone(), nil
}

// AddItem appends a line item, merging by quantity when a row with the same
// (productID, size) already exists. Returns the updated cart.
func (s *CartStore) AddItem(ctx context.Context, userID, productID string, quantity int, size, color string) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, userID)

	if i := cart.FindItemIndex(productID, size); i >= 0 {
		cart.Items[i].Quantity += quantity
		if color != "" {
			cart.Items[i].Color = color
		}
	} else {
		cart.Items = append(cart.Items, domain.LineItem{
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
			Color:     color,
		})
	}

	return cart.Clone(), s.persistLocked(ctx, cart)
}

// RemoveItem deletes the row matching (productID, size). Removing an absent
// row is a no-op, not an error.
func (s *CartStore) RemoveItem(ctx context.Context, userID, productID, size string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, userID)

	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return cart.Clone(), nil
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	return cart.Clone(), s.persistLocked(ctx, cart)
}

// SetQuantity replaces the quantity on the row matching (productID, size).
func (s *CartStore) SetQuantity(ctx context.Context, userID, productID, size string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, userID)

	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", productID+"/"+size)
	}

	cart.Items[i].Quantity = quantity
	return cart.Clone(), s.persistLocked(ctx, cart)
}

// ChangeSize moves the row at (productID, oldSize) to newSize. When a row
// already exists at the destination its quantity absorbs the moved row's
// quantity and the old row is deleted.
func (s *CartStore) ChangeSize(ctx context.Context, userID, productID, oldSize, newSize string) (*domain.Cart, error) {
	if oldSize == newSize {
		return s.Get(ctx, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, userID)

	src := cart.FindItemIndex(productID, oldSize)
	if src < 0 {
		return nil, apperrors.NotFound("cart item", productID+"/"+oldSize)
	}

	if dst := cart.FindItemIndex(productID, newSize); dst >= 0 {
		cart.Items[dst].Quantity += cart.Items[src].Quantity
		cart.Items = append(cart.Items[:src], cart.Items[src+1:]...)
	} else {
		cart.Items[src].Size = newSize
	}

	return cart.Clone(), s.persistLocked(ctx, cart)
}

// Clear empties the user's cart and deletes the persisted blob.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[userID] = &domain.Cart{UserID: userID, Items: []domain.LineItem{}}
	s.loaded[userID] = true

	if err := s.repo.Delete(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete persisted cart",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return apperrors.StorageUnavailable(err)
	}
	return nil
}

// cartLocked returns the in-memory cart for the user, loading it from the
// repository on first access. A failed load falls back to an empty cart and
// is not retried; memory is authoritative from that point on.
func (s *CartStore) cartLocked(ctx context.Context, userID string) *domain.Cart {
	if s.loaded[userID] {
		return s.carts[userID]
	}

	cart := &domain.Cart{UserID: userID, Items: []domain.LineItem{}}

	items, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		cart.Items = items
	case errors.Is(err, apperrors.ErrNotFound):
		// First visit; nothing persisted yet.
	default:
		s.logger.ErrorContext(ctx, "failed to load persisted cart, starting empty",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.carts[userID] = cart
	s.loaded[userID] = true
	return cart
}

// persistLocked mirrors the in-memory cart to the repository. The mutation
// has already happened; a write failure is reported as StorageUnavailable
// without being rolled back.
func (s *CartStore) persistLocked(ctx context.Context, cart *domain.Cart) error {
	if err := s.repo.Save(ctx, cart.UserID, cart.Items); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart, in-memory state retained",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
		return apperrors.StorageUnavailable(fmt.Errorf("persist cart: %w", err))
	}
	return nil
}
