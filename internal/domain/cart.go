package domain

// LineItem is a single row in the cart. The pair (ProductID, Size) is the
// item's identity: two rows with the same product but different sizes are
// distinct, and adds against an existing pair merge by quantity. Color is
// carried for display only and takes no part in identity.
//
// The cart stores no price; monetary figures always come from a fresh
// product resolution.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Cart is the per-user list of line items.
type Cart struct {
	UserID string     `json:"user_id"`
	Items  []LineItem `json:"items"`
}

// FindItemIndex returns the index of the line item matching the given
// product ID and size, or -1 if absent.
func (c *Cart) FindItemIndex(productID, size string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			return i
		}
	}
	return -1
}

// ItemCount returns the total quantity across all line items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ProductIDs returns the distinct product IDs referenced by the cart.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Clone returns a deep copy of the cart. The store hands out clones so
// callers can never mutate its internal state.
func (c *Cart) Clone() *Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{UserID: c.UserID, Items: items}
}
