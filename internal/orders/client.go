package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Satisfied by httpclient.Client.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// PlaceInput is the pricing snapshot handed to the order service at checkout.
// Amounts are in minor currency units and already reconciled; the order
// service does not re-price.
type PlaceInput struct {
	Items          []domain.LineItem
	DiscountCode   string
	DiscountAmount int64
	Subtotal       int64
	ShippingFee    int64
	Total          int64
}

// Client submits finalized carts to the order service.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an order service client against the given base URL.
func NewClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Place creates an order and returns its id.
func (c *Client) Place(ctx context.Context, userID string, input PlaceInput) (string, error) {
	type orderItem struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Size      string `json:"size,omitempty"`
	}

	type createOrderRequest struct {
		UserID         string      `json:"user_id"`
		Items          []orderItem `json:"items"`
		DiscountCode   string      `json:"discount_code,omitempty"`
		DiscountAmount int64       `json:"discount_amount"`
		SubtotalAmount int64       `json:"subtotal_amount"`
		ShippingFee    int64       `json:"shipping_fee"`
		TotalAmount    int64       `json:"total_amount"`
	}

	type createOrderResponse struct {
		OrderID string `json:"order_id"`
	}

	req := createOrderRequest{
		UserID:         userID,
		Items:          make([]orderItem, len(input.Items)),
		DiscountCode:   input.DiscountCode,
		DiscountAmount: input.DiscountAmount,
		SubtotalAmount: input.Subtotal,
		ShippingFee:    input.ShippingFee,
		TotalAmount:    input.Total,
	}
	for i, item := range input.Items {
		req.Items[i] = orderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal create order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "order")
	}

	var orderResp createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}

	c.logger.InfoContext(ctx, "order placed",
		slog.String("user_id", userID),
		slog.String("order_id", orderResp.OrderID),
		slog.Int64("total_amount", input.Total),
	)

	return orderResp.OrderID, nil
}
