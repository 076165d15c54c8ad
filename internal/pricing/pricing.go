// Package pricing computes cart totals. It is pure: no I/O, no clock, no
// state. All amounts are int64 minor units.
package pricing

import (
	"github.com/utafrali/storefront-cart/internal/domain"
)

// Quote bundles the monetary figures for a cart.
type Quote struct {
	Subtotal       int64    `json:"subtotal"`
	ShippingFee    int64    `json:"shipping_fee"`
	DiscountAmount int64    `json:"discount_amount"`
	Total          int64    `json:"total"`
	Unpriced       []string `json:"unpriced,omitempty"`
}

// Subtotal sums quantity × unit price over the line items. Items whose
// product is missing from the resolved map are skipped, not treated as
// zero-priced silently: their product IDs are returned as warnings so the
// caller can surface them.
func Subtotal(items []domain.LineItem, products map[string]domain.Product) (int64, []string) {
	var subtotal int64
	var unpriced []string

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			unpriced = append(unpriced, item.ProductID)
			continue
		}
		subtotal += int64(item.Quantity) * product.Price
	}

	return subtotal, unpriced
}

// Total computes subtotal + shipping − discount, clamped at zero. A discount
// larger than the rest of the order never produces a negative total.
func Total(subtotal, shippingFee, discountAmount int64) int64 {
	total := subtotal + shippingFee - discountAmount
	if total < 0 {
		return 0
	}
	return total
}

// NewQuote assembles a Quote from the component figures.
func NewQuote(items []domain.LineItem, products map[string]domain.Product, shippingFee, discountAmount int64) Quote {
	subtotal, unpriced := Subtotal(items, products)
	return Quote{
		Subtotal:       subtotal,
		ShippingFee:    shippingFee,
		DiscountAmount: discountAmount,
		Total:          Total(subtotal, shippingFee, discountAmount),
		Unpriced:       unpriced,
	}
}
