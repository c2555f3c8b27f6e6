package models

// Product is a catalog entry.
type Product struct {
	ID         string  `json:"id"`
	Slug       string  `json:"slug"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	MRP        float64 `json:"mrp,omitempty"`
	CategoryID string  `json:"categoryId,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Stock      int     `json:"stock"`
}

// Ref returns the cart reference of the product.
func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Slug: p.Slug}
}

// ProductQuery filters GET /products.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// PageInfo is the pagination block of list responses.
type PageInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
