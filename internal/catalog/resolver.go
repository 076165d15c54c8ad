package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront-cart/internal/domain"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
	"github.com/utafrali/storefront-cart/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Satisfied by httpclient.Client.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Resolver fetches canonical product data from the product service. Size
// lists are memoized for the process lifetime: product sizes are treated as
// immutable for a session, so the cache needs no invalidation.
type Resolver struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger

	mu        sync.RWMutex
	sizeCache map[string][]string
}

// NewResolver creates a product resolver against the given base URL.
func NewResolver(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		sizeCache:  make(map[string][]string),
	}
}

// Resolve fetches every product concurrently and returns a complete mapping.
// Resolution is all-or-nothing: if any single fetch fails the whole call
// fails with ProductResolutionFailed, because totals computed from a partial
// mapping cannot be trusted.
func (r *Resolver) Resolve(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if len(productIDs) == 0 {
		return map[string]domain.Product{}, nil
	}

	var mu sync.Mutex
	products := make(map[string]domain.Product, len(productIDs))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range productIDs {
		g.Go(func() error {
			product, err := r.fetchProduct(gctx, id)
			if err != nil {
				return apperrors.ProductResolutionFailed(id, err)
			}
			mu.Lock()
			products[product.ID] = *product
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return products, nil
}

// Sizes returns the declared size labels for a product, serving repeated
// lookups from the in-process cache.
func (r *Resolver) Sizes(ctx context.Context, productID string) ([]string, error) {
	r.mu.RLock()
	sizes, ok := r.sizeCache[productID]
	r.mu.RUnlock()
	if ok {
		return sizes, nil
	}

	sizes, err := r.fetchSizes(ctx, productID)
	if err != nil {
		return nil, apperrors.ProductResolutionFailed(productID, err)
	}

	r.mu.Lock()
	r.sizeCache[productID] = sizes
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "product sizes cached",
		slog.String("product_id", productID),
		slog.Int("size_count", len(sizes)),
	)

	return sizes, nil
}

func (r *Resolver) fetchProduct(ctx context.Context, productID string) (*domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/products/"+url.PathEscape(productID), nil)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}

	resp, err := r.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call product service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product")
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}

	return &product, nil
}

func (r *Resolver) fetchSizes(ctx context.Context, productID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/products/"+url.PathEscape(productID)+"/sizes", nil)
	if err != nil {
		return nil, fmt.Errorf("create sizes request: %w", err)
	}

	resp, err := r.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call product service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product")
	}

	var sizes []string
	if err := json.NewDecoder(resp.Body).Decode(&sizes); err != nil {
		return nil, fmt.Errorf("decode sizes response: %w", err)
	}

	return sizes, nil
}
