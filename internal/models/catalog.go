package models

// Category groups products.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Featured bool   `json:"featured,omitempty"`
}
