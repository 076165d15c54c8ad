package discount

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/utafrali/storefront-cart/internal/domain"
)

// codeRe matches well-formed coupon codes after uppercasing. Anything else is
// rejected locally without a network call.
var codeRe = regexp.MustCompile(`^[A-Z0-9-]{1,64}$`)

// HTTPDoer executes HTTP requests. Satisfied by httpclient.Client.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// checkResponse is the discount service's eligibility response.
type checkResponse struct {
	Valid                 bool   `json:"valid"`
	DiscountType          string `json:"discountType"`
	Value                 int64  `json:"value"`
	MinimumPurchaseAmount int64  `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount int64  `json:"maximumDiscountAmount"`
	Reason                string `json:"reason,omitempty"`
	Message               string `json:"message,omitempty"`
}

// Evaluator turns a user-supplied code into a DiscountApplication or a
// RejectionError, following the two-step protocol: a network eligibility
// check, then a local minimum-purchase gate and amount computation.
type Evaluator struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewEvaluator creates an evaluator against the given discount service URL.
func NewEvaluator(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Evaluate validates the code for the given subtotal. The returned error is a
// *RejectionError for every user-facing failure; transport and server faults
// are folded into the taxonomy as NETWORK_ERROR and SERVER_ERROR.
func (e *Evaluator) Evaluate(ctx context.Context, code, userID string, subtotal int64) (*domain.DiscountApplication, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codeRe.MatchString(code) {
		return nil, Reject(ReasonInvalidFormat, "coupon code is malformed")
	}

	check, err := e.checkCode(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	if !check.Valid {
		reason := normalizeReason(check.Reason, check.Message)
		message := check.Message
		if message == "" {
			message = "coupon code is not eligible"
		}
		return nil, Reject(reason, message)
	}

	// The minimum-purchase gate is local: no second round trip for an order
	// that is too small.
	if check.MinimumPurchaseAmount > 0 && subtotal < check.MinimumPurchaseAmount {
		return nil, Reject(ReasonOrderTooSmall,
			fmt.Sprintf("order subtotal %d is below the minimum purchase amount %d", subtotal, check.MinimumPurchaseAmount))
	}

	amount := computeAmount(check.DiscountType, check.Value, check.MaximumDiscountAmount, subtotal)

	e.logger.DebugContext(ctx, "coupon evaluated",
		slog.String("code", code),
		slog.String("discount_type", check.DiscountType),
		slog.Int64("subtotal", subtotal),
		slog.Int64("amount", amount),
	)

	return &domain.DiscountApplication{
		Code:                  code,
		DiscountType:          check.DiscountType,
		Value:                 check.Value,
		ComputedAmount:        amount,
		MinimumPurchaseAmount: check.MinimumPurchaseAmount,
		MaximumDiscountAmount: check.MaximumDiscountAmount,
	}, nil
}

// Confirm asks the discount service to compute the final amount for an order
// total. Used at checkout handoff so the figure sent to the order service is
// the server's own.
func (e *Evaluator) Confirm(ctx context.Context, code, userID string, orderTotal int64) (int64, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("orderTotal", strconv.FormatInt(orderTotal, 10))
	if userID != "" {
		q.Set("userId", userID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/discount-codes/validate?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create validate request: %w", err)
	}

	resp, err := e.httpClient.Do(ctx, req)
	if err != nil {
		return 0, Reject(ReasonNetworkError, "could not reach the discount service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, e.rejectFromStatus(resp)
	}

	var amount int64
	if err := json.NewDecoder(resp.Body).Decode(&amount); err != nil {
		return 0, fmt.Errorf("decode validate response: %w", err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("discount service returned negative amount %d", amount)
	}

	return amount, nil
}

func (e *Evaluator) checkCode(ctx context.Context, code, userID string) (*checkResponse, error) {
	q := url.Values{}
	q.Set("code", code)
	if userID != "" {
		q.Set("userId", userID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/discount-codes/check?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create check request: %w", err)
	}

	resp, err := e.httpClient.Do(ctx, req)
	if err != nil {
		return nil, Reject(ReasonNetworkError, "could not reach the discount service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.rejectFromStatus(resp)
	}

	var check checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		return nil, Reject(ReasonServerError, "discount service returned an unreadable response")
	}

	return &check, nil
}

// rejectFromStatus folds non-200 responses into the taxonomy. Some deployments
// report rejections through error bodies rather than a valid:false payload, so
// the body's reason field is consulted before falling back on the status code.
func (e *Evaluator) rejectFromStatus(resp *http.Response) *RejectionError {
	var body struct {
		Reason  string `json:"reason"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	raw := body.Reason
	if raw == "" {
		raw = body.Code
	}
	message := body.Message
	if body.Error != nil {
		if raw == "" {
			raw = body.Error.Code
		}
		if message == "" {
			message = body.Error.Message
		}
	}

	if raw != "" || message != "" {
		if reason := normalizeReason(raw, message); reason != ReasonServerError {
			if message == "" {
				message = "coupon code is not eligible"
			}
			return Reject(reason, message)
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Reject(ReasonCodeNotFound, "coupon code not found")
	case resp.StatusCode >= 500:
		return Reject(ReasonServerError, "discount service failed")
	default:
		if message == "" {
			message = "coupon code is not eligible"
		}
		return Reject(ReasonServerError, message)
	}
}

// normalizeReason maps the discount service's loose reason strings and
// messages onto the fixed taxonomy.
func normalizeReason(raw, message string) Reason {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "NOT_FOUND", "CODE_NOT_FOUND":
		return ReasonCodeNotFound
	case "EXPIRED", "CODE_EXPIRED":
		return ReasonCodeExpired
	case "NOT_STARTED", "CODE_NOT_STARTED":
		return ReasonCodeNotStarted
	case "INACTIVE", "CODE_INACTIVE", "DISABLED":
		return ReasonCodeInactive
	case "USAGE_LIMIT", "USAGE_LIMIT_REACHED", "MAX_USAGE":
		return ReasonUsageLimitReached
	case "MIN_ORDER", "ORDER_TOO_SMALL", "MINIMUM_PURCHASE":
		return ReasonOrderTooSmall
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found"):
		return ReasonCodeNotFound
	case strings.Contains(lower, "expired"):
		return ReasonCodeExpired
	case strings.Contains(lower, "not started"):
		return ReasonCodeNotStarted
	case strings.Contains(lower, "not active"), strings.Contains(lower, "inactive"):
		return ReasonCodeInactive
	case strings.Contains(lower, "usage limit"):
		return ReasonUsageLimitReached
	case strings.Contains(lower, "minimum"):
		return ReasonOrderTooSmall
	default:
		return ReasonServerError
	}
}

// computeAmount applies the discount rules to a subtotal. A percentage
// discount is capped by the maximum discount amount when one is set; no
// discount can ever exceed the subtotal it applies to.
func computeAmount(discountType string, value, maximumDiscountAmount, subtotal int64) int64 {
	switch discountType {
	case domain.DiscountTypePercentage:
		amount := subtotal * value / 100
		if maximumDiscountAmount > 0 && amount > maximumDiscountAmount {
			amount = maximumDiscountAmount
		}
		if amount > subtotal {
			amount = subtotal
		}
		return amount
	case domain.DiscountTypeFixedAmount:
		if value > subtotal {
			return subtotal
		}
		return value
	default:
		return 0
	}
}
