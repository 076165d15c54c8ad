package domain

// Product is the resolved, authoritative view of a catalog product at the
// time of a cart operation. It is read-through state owned by the product
// service and never persisted here.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Available int    `json:"quantity"`
	InStock   bool   `json:"inStock"`
	ImageURL  string `json:"img"`
}
