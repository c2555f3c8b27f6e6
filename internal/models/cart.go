package models

// CartItem is one line of the shopping cart.
type CartItem struct {
	ID          string         `json:"id"`
	ProductID   string         `json:"productId"`
	ProductSlug string         `json:"productSlug,omitempty"`
	ProductName string         `json:"productName,omitempty"`
	Quantity    int            `json:"quantity"`
	Price       *float64       `json:"price,omitempty"`
	Variation   map[string]any `json:"variation,omitempty"`
}

// Cart is the client-side view of the user's cart. TotalItems and Total are
// derived; ServerTotal keeps the backend figure when one was supplied.
type Cart struct {
	Items       []CartItem `json:"items"`
	TotalItems  int        `json:"totalItems"`
	Total       float64    `json:"total"`
	ServerTotal *float64   `json:"-"`
}

// CartPayload is the cart shape sent by the backend.
type CartPayload struct {
	Items []CartItem `json:"items"`
	Total *float64   `json:"total,omitempty"`
}

// ProductRef identifies a product by any of the identifiers the catalog exposes.
type ProductRef struct {
	ID         string `json:"id,omitempty"`
	Slug       string `json:"slug,omitempty"`
	ProductID  string `json:"productId,omitempty"`
	OriginalID string `json:"originalId,omitempty"`
}

// Identifier returns the identifier sent to the backend: slug, then id,
// then productId, then originalId.
func (r ProductRef) Identifier() string {
	for _, candidate := range []string{r.Slug, r.ID, r.ProductID, r.OriginalID} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// AddCartItemRequest is the body of POST /cart/items.
type AddCartItemRequest struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Variation map[string]any `json:"variation"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:id.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
