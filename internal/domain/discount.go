package domain

// Discount type constants, as reported by the discount service.
const (
	DiscountTypePercentage  = "PERCENTAGE"
	DiscountTypeFixedAmount = "FIXED_AMOUNT"
)

// DiscountApplication is the single active discount on a cart session.
// It is ephemeral: recomputed from scratch whenever the subtotal changes
// and never persisted beyond the checkout handoff.
type DiscountApplication struct {
	Code                  string `json:"code"`
	DiscountType          string `json:"discount_type"`
	Value                 int64  `json:"value"`
	ComputedAmount        int64  `json:"computed_amount"`
	MinimumPurchaseAmount int64  `json:"minimum_purchase_amount"`
	MaximumDiscountAmount int64  `json:"maximum_discount_amount"`
}

// CouponState is the state of the coupon flow for one cart session.
type CouponState string

const (
	CouponIdle     CouponState = "idle"
	CouponChecking CouponState = "checking"
	CouponApplied  CouponState = "applied"
	CouponRejected CouponState = "rejected"
)
