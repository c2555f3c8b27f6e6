package cart

import (
	"slices"

	"github.com/example/quickcommerce/internal/models"
)

// RecomputeTotals is the single place cart totals are derived. TotalItems is
// the sum of quantities; Total is the server figure when one was supplied
// and non-zero, otherwise the sum of price times quantity over priced items.
func RecomputeTotals(items []models.CartItem, serverTotal *float64) models.Cart {
	c := models.Cart{Items: slices.Clone(items), ServerTotal: serverTotal}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}

	var computed float64
	for _, item := range c.Items {
		c.TotalItems += item.Quantity
		if item.Price != nil {
			computed += *item.Price * float64(item.Quantity)
		}
	}

	if serverTotal != nil && *serverTotal != 0 {
		c.Total = *serverTotal
	} else {
		c.Total = computed
	}
	return c
}

// FromPayload builds a cart from a backend payload.
func FromPayload(p *models.CartPayload) models.Cart {
	if p == nil {
		return RecomputeTotals(nil, nil)
	}
	return RecomputeTotals(p.Items, p.Total)
}

// Empty returns a cart without items.
func Empty() models.Cart {
	return RecomputeTotals(nil, nil)
}

// withQuantity returns c with the quantity of itemID replaced. The server
// total is dropped since it no longer matches the items.
func withQuantity(c models.Cart, itemID string, quantity int) (models.Cart, bool) {
	idx := slices.IndexFunc(c.Items, func(it models.CartItem) bool { return it.ID == itemID })
	if idx < 0 {
		return c, false
	}
	items := slices.Clone(c.Items)
	items[idx].Quantity = quantity
	return RecomputeTotals(items, nil), true
}

// without returns c with itemID filtered out.
func without(c models.Cart, itemID string) (models.Cart, bool) {
	if !slices.ContainsFunc(c.Items, func(it models.CartItem) bool { return it.ID == itemID }) {
		return c, false
	}
	items := slices.DeleteFunc(slices.Clone(c.Items), func(it models.CartItem) bool { return it.ID == itemID })
	return RecomputeTotals(items, nil), true
}
