package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/utafrali/storefront-cart/internal/discount"
	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/internal/event"
	"github.com/utafrali/storefront-cart/internal/orders"
	"github.com/utafrali/storefront-cart/internal/pricing"
	"github.com/utafrali/storefront-cart/internal/store"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
)

// ProductResolver fetches canonical product data. Satisfied by catalog.Resolver.
type ProductResolver interface {
	Resolve(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	Sizes(ctx context.Context, productID string) ([]string, error)
}

// CouponEvaluator validates discount codes. Satisfied by discount.Evaluator.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code, userID string, subtotal int64) (*domain.DiscountApplication, error)
	Confirm(ctx context.Context, code, userID string, orderTotal int64) (int64, error)
}

// OrderPlacer submits finalized carts. Satisfied by orders.Client.
type OrderPlacer interface {
	Place(ctx context.Context, userID string, input orders.PlaceInput) (string, error)
}

// EventPublisher publishes cart domain events. Satisfied by event.Producer.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, userID string) error
	PublishCouponApplied(ctx context.Context, userID, code string, amount int64) error
	PublishCheckoutSubmitted(ctx context.Context, data event.CheckoutSubmittedData) error
}

// couponSession tracks the coupon flow for one user. The generation counter
// implements last-request-wins: every ApplyCoupon and ClearCoupon bumps it,
// and an evaluation result is dropped on the floor when a newer request has
// bumped the counter while it was in flight.
type couponSession struct {
	state       domain.CouponState
	code        string
	application *domain.DiscountApplication
	rejection   *discount.RejectionError
	generation  uint64
	// subtotal at which the applied amount was last computed; a differing
	// cart subtotal forces re-evaluation before the discount is trusted.
	subtotal int64
}

// CouponStatus is the user-facing view of the coupon flow.
type CouponStatus struct {
	State    domain.CouponState          `json:"state"`
	Code     string                      `json:"code,omitempty"`
	Discount *domain.DiscountApplication `json:"discount,omitempty"`
	Reason   discount.Reason             `json:"reason,omitempty"`
	Message  string                      `json:"message,omitempty"`
}

// QuoteResult bundles the cart contents, its pricing, and the coupon state.
type QuoteResult struct {
	Items   []domain.LineItem `json:"items"`
	Pricing pricing.Quote     `json:"pricing"`
	Coupon  CouponStatus      `json:"coupon"`
}

// CartService implements the business logic for cart operations: stock-aware
// mutations, pricing reconciliation, the coupon flow, and checkout handoff.
type CartService struct {
	store       *store.CartStore
	resolver    ProductResolver
	coupons     CouponEvaluator
	orders      OrderPlacer
	producer    EventPublisher
	logger      *slog.Logger
	shippingFee int64

	couponMu sync.Mutex
	sessions map[string]*couponSession
}

// NewCartService creates a cart service.
func NewCartService(
	cartStore *store.CartStore,
	resolver ProductResolver,
	coupons CouponEvaluator,
	orderClient OrderPlacer,
	producer EventPublisher,
	logger *slog.Logger,
	shippingFee int64,
) *CartService {
	return &CartService{
		store:       cartStore,
		resolver:    resolver,
		coupons:     coupons,
		orders:      orderClient,
		producer:    producer,
		logger:      logger,
		shippingFee: shippingFee,
		sessions:    make(map[string]*couponSession),
	}
}

// AddToCart adds quantity of a product to the user's cart. The product must
// resolve, a size must be chosen when the product declares sizes, and the
// post-merge quantity must fit under the stock ceiling or the add is rejected
// outright, never clamped.
func (s *CartService) AddToCart(ctx context.Context, userID, productID string, quantity int, size, color string) (*domain.Cart, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.resolveOne(ctx, productID)
	if err != nil {
		return nil, err
	}

	sizes, err := s.resolver.Sizes(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(sizes) > 0 {
		if size == "" {
			return nil, apperrors.SizeRequired(productID)
		}
		if !slices.Contains(sizes, size) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("product %s has no size %q", productID, size))
		}
	}

	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing := 0
	if i := cart.FindItemIndex(productID, size); i >= 0 {
		existing = cart.Items[i].Quantity
	}
	if err := checkStock(product, existing+quantity); err != nil {
		return nil, err
	}

	cart, err = s.store.AddItem(ctx, userID, productID, quantity, size, color)
	if cart == nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
		slog.String("size", size),
	)
	s.publishUpdated(ctx, cart)

	// A persistence failure still carries the updated cart; surface both.
	return cart, err
}

// IncrementQuantity bumps the row's quantity by one, subject to the stock ceiling.
func (s *CartService) IncrementQuantity(ctx context.Context, userID, productID, size string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}

	product, err := s.resolveOne(ctx, productID)
	if err != nil {
		return nil, err
	}
	next := cart.Items[i].Quantity + 1
	if err := checkStock(product, next); err != nil {
		return nil, err
	}

	cart, err = s.store.SetQuantity(ctx, userID, productID, size, next)
	if cart == nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	return cart, err
}

// DecrementQuantity lowers the row's quantity by one, flooring at 1. It never
// removes the row; removal is an explicit, separate operation.
func (s *CartService) DecrementQuantity(ctx context.Context, userID, productID, size string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}
	if cart.Items[i].Quantity <= 1 {
		return cart, nil
	}

	cart, err = s.store.SetQuantity(ctx, userID, productID, size, cart.Items[i].Quantity-1)
	if cart == nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	return cart, err
}

// SetQuantity replaces the row's quantity with an explicit value, subject to
// the stock ceiling. An over-ceiling value is rejected, not clamped.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID, size string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.resolveOne(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(product, quantity); err != nil {
		return nil, err
	}

	cart, err := s.store.SetQuantity(ctx, userID, productID, size, quantity)
	if cart == nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	return cart, err
}

// ChangeSize moves a row to a different size. The destination is checked
// against the declared sizes and, because a row may already exist there, the
// post-merge quantity is checked against the stock ceiling.
func (s *CartService) ChangeSize(ctx context.Context, userID, productID, oldSize, newSize string) (*domain.Cart, error) {
	if newSize == "" {
		return nil, apperrors.InvalidInput("new size is required")
	}
	if oldSize == newSize {
		return s.store.Get(ctx, userID)
	}

	sizes, err := s.resolver.Sizes(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(sizes) > 0 && !slices.Contains(sizes, newSize) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product %s has no size %q", productID, newSize))
	}

	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	src := cart.FindItemIndex(productID, oldSize)
	if src < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}
	merged := cart.Items[src].Quantity
	if dst := cart.FindItemIndex(productID, newSize); dst >= 0 {
		merged += cart.Items[dst].Quantity
	}

	product, err := s.resolveOne(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(product, merged); err != nil {
		return nil, err
	}

	cart, err = s.store.ChangeSize(ctx, userID, productID, oldSize, newSize)
	if cart == nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)
	return cart, err
}

// RemoveItem deletes the row matching (productID, size). When the last item
// leaves the cart any applied coupon is dropped with it.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID, size string) (*domain.Cart, error) {
	cart, err := s.store.RemoveItem(ctx, userID, productID, size)
	if cart == nil {
		return nil, err
	}

	if len(cart.Items) == 0 {
		s.resetCoupon(userID)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.String("size", size),
	)
	s.publishUpdated(ctx, cart)
	return cart, err
}

// Clear empties the cart and drops any coupon state.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	err := s.store.Clear(ctx, userID)
	s.resetCoupon(userID)

	s.logger.InfoContext(ctx, "cart cleared", slog.String("user_id", userID))
	if pubErr := s.producer.PublishCartCleared(ctx, userID); pubErr != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", pubErr.Error()),
		)
	}
	return err
}

// GetQuote resolves the cart's products, reconciles any applied coupon
// against the current subtotal, and returns the full priced view.
func (s *CartService) GetQuote(ctx context.Context, userID string) (*QuoteResult, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.resolver.Resolve(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	subtotal, unpriced := pricing.Subtotal(cart.Items, products)
	coupon := s.reconcileCoupon(ctx, userID, subtotal)

	var discountAmount int64
	if coupon.Discount != nil {
		discountAmount = coupon.Discount.ComputedAmount
	}

	quote := pricing.NewQuote(cart.Items, products, s.shippingFee, discountAmount)
	quote.Unpriced = unpriced

	return &QuoteResult{
		Items:   cart.Items,
		Pricing: quote,
		Coupon:  coupon,
	}, nil
}

// ApplyCoupon evaluates a code against the current cart. Concurrent applies
// race safely: the latest request wins and stale in-flight results are
// discarded.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, code string) (CouponStatus, error) {
	s.couponMu.Lock()
	sess := s.sessionLocked(userID)
	sess.generation++
	gen := sess.generation
	sess.state = domain.CouponChecking
	sess.code = code
	sess.application = nil
	sess.rejection = nil
	s.couponMu.Unlock()

	subtotal, err := s.currentSubtotal(ctx, userID)
	if err != nil {
		s.settleCoupon(userID, gen, 0, nil, discount.Reject(discount.ReasonServerError, "could not price the cart"))
		return s.couponStatus(userID), err
	}

	application, evalErr := s.coupons.Evaluate(ctx, code, userID, subtotal)

	var rejection *discount.RejectionError
	if evalErr != nil {
		if !errors.As(evalErr, &rejection) {
			// Unexpected failures still resolve the session; Checking is never
			// a resting state.
			s.settleCoupon(userID, gen, subtotal, nil,
				discount.Reject(discount.ReasonServerError, "coupon check failed"))
			return s.couponStatus(userID), evalErr
		}
	}

	if applied := s.settleCoupon(userID, gen, subtotal, application, rejection); applied && application != nil {
		s.logger.InfoContext(ctx, "coupon applied",
			slog.String("user_id", userID),
			slog.String("code", application.Code),
			slog.Int64("discount_amount", application.ComputedAmount),
		)
		if pubErr := s.producer.PublishCouponApplied(ctx, userID, application.Code, application.ComputedAmount); pubErr != nil {
			s.logger.ErrorContext(ctx, "failed to publish coupon.applied event",
				slog.String("user_id", userID),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	return s.couponStatus(userID), nil
}

// ClearCoupon removes any coupon state for the user.
func (s *CartService) ClearCoupon(_ context.Context, userID string) CouponStatus {
	s.resetCoupon(userID)
	return CouponStatus{State: domain.CouponIdle}
}

// CouponState returns the current coupon status without touching the network.
func (s *CartService) CouponState(userID string) CouponStatus {
	return s.couponStatus(userID)
}

// Checkout confirms the discount with the discount service, hands the priced
// cart to the order service, and clears both the cart and the coupon. The
// cart survives untouched when any step fails.
func (s *CartService) Checkout(ctx context.Context, userID string) (string, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(cart.Items) == 0 {
		return "", apperrors.InvalidInput("cart is empty")
	}

	products, err := s.resolver.Resolve(ctx, cart.ProductIDs())
	if err != nil {
		return "", err
	}
	subtotal, _ := pricing.Subtotal(cart.Items, products)

	coupon := s.reconcileCoupon(ctx, userID, subtotal)

	var discountCode string
	var discountAmount int64
	if coupon.State == domain.CouponApplied && coupon.Discount != nil {
		// The amount sent to the order service is the discount service's own
		// figure for the final order total, not the locally computed one.
		confirmed, err := s.coupons.Confirm(ctx, coupon.Discount.Code, userID, subtotal+s.shippingFee)
		if err != nil {
			var rejection *discount.RejectionError
			if errors.As(err, &rejection) {
				s.settleCoupon(userID, s.currentGeneration(userID), subtotal, nil, rejection)
			}
			return "", err
		}
		discountCode = coupon.Discount.Code
		discountAmount = confirmed
	}

	total := pricing.Total(subtotal, s.shippingFee, discountAmount)

	orderID, err := s.orders.Place(ctx, userID, orders.PlaceInput{
		Items:          cart.Items,
		DiscountCode:   discountCode,
		DiscountAmount: discountAmount,
		Subtotal:       subtotal,
		ShippingFee:    s.shippingFee,
		Total:          total,
	})
	if err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}

	if clearErr := s.store.Clear(ctx, userID); clearErr != nil {
		// The order exists; a failed cart wipe must not fail the checkout.
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("order_id", orderID),
			slog.String("error", clearErr.Error()),
		)
	}
	s.resetCoupon(userID)

	s.logger.InfoContext(ctx, "checkout submitted",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
		slog.Int64("total_amount", total),
	)
	if pubErr := s.producer.PublishCheckoutSubmitted(ctx, event.CheckoutSubmittedData{
		UserID:         userID,
		OrderID:        orderID,
		ItemCount:      cart.ItemCount(),
		DiscountCode:   discountCode,
		DiscountAmount: discountAmount,
		TotalAmount:    total,
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.submitted event",
			slog.String("user_id", userID),
			slog.String("error", pubErr.Error()),
		)
	}

	return orderID, nil
}

// reconcileCoupon re-evaluates an applied coupon when the cart subtotal has
// moved since the amount was computed. A coupon that no longer qualifies
// (for example the order shrank below the minimum purchase) flips to
// rejected; one that still qualifies gets a fresh amount.
func (s *CartService) reconcileCoupon(ctx context.Context, userID string, subtotal int64) CouponStatus {
	s.couponMu.Lock()
	sess, ok := s.sessions[userID]
	if !ok || sess.state != domain.CouponApplied || sess.subtotal == subtotal {
		status := s.statusLocked(sess)
		s.couponMu.Unlock()
		return status
	}
	code := sess.code
	gen := sess.generation
	s.couponMu.Unlock()

	application, err := s.coupons.Evaluate(ctx, code, userID, subtotal)

	var rejection *discount.RejectionError
	if err != nil && !errors.As(err, &rejection) {
		rejection = discount.Reject(discount.ReasonNetworkError, "could not re-validate the coupon")
	}

	s.settleCoupon(userID, gen, subtotal, application, rejection)

	if rejection != nil {
		s.logger.InfoContext(ctx, "coupon no longer valid after cart change",
			slog.String("user_id", userID),
			slog.String("code", code),
			slog.String("reason", string(rejection.Reason)),
		)
	}

	return s.couponStatus(userID)
}

// settleCoupon records an evaluation outcome if the generation still matches.
// Returns false when a newer request superseded this one.
func (s *CartService) settleCoupon(userID string, gen uint64, subtotal int64, application *domain.DiscountApplication, rejection *discount.RejectionError) bool {
	s.couponMu.Lock()
	defer s.couponMu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.generation != gen {
		return false
	}

	sess.subtotal = subtotal
	sess.application = application
	sess.rejection = rejection
	switch {
	case application != nil:
		sess.state = domain.CouponApplied
		sess.code = application.Code
	case rejection != nil:
		sess.state = domain.CouponRejected
	default:
		sess.state = domain.CouponIdle
	}
	return true
}

func (s *CartService) resetCoupon(userID string) {
	s.couponMu.Lock()
	defer s.couponMu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.generation++
		sess.state = domain.CouponIdle
		sess.code = ""
		sess.application = nil
		sess.rejection = nil
		sess.subtotal = 0
	}
}

func (s *CartService) couponStatus(userID string) CouponStatus {
	s.couponMu.Lock()
	defer s.couponMu.Unlock()
	return s.statusLocked(s.sessions[userID])
}

func (s *CartService) statusLocked(sess *couponSession) CouponStatus {
	if sess == nil {
		return CouponStatus{State: domain.CouponIdle}
	}
	status := CouponStatus{State: sess.state, Code: sess.code}
	if sess.application != nil {
		status.Discount = sess.application
	}
	if sess.rejection != nil {
		status.Reason = sess.rejection.Reason
		status.Message = sess.rejection.Message
	}
	return status
}

func (s *CartService) currentGeneration(userID string) uint64 {
	s.couponMu.Lock()
	defer s.couponMu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.generation
	}
	return 0
}

func (s *CartService) sessionLocked(userID string) *couponSession {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &couponSession{state: domain.CouponIdle}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *CartService) currentSubtotal(ctx context.Context, userID string) (int64, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	products, err := s.resolver.Resolve(ctx, cart.ProductIDs())
	if err != nil {
		return 0, err
	}
	subtotal, _ := pricing.Subtotal(cart.Items, products)
	return subtotal, nil
}

func (s *CartService) resolveOne(ctx context.Context, productID string) (*domain.Product, error) {
	products, err := s.resolver.Resolve(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	product, ok := products[productID]
	if !ok {
		return nil, apperrors.ProductResolutionFailed(productID, errors.New("product missing from resolution"))
	}
	return &product, nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// checkStock rejects a quantity that exceeds the product's available stock.
func checkStock(product *domain.Product, quantity int) error {
	available := product.Available
	if !product.InStock {
		available = 0
	}
	if quantity > available {
		return apperrors.InsufficientStock(product.ID, quantity, available)
	}
	return nil
}
