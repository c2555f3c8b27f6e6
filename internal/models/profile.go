package models

import "strings"

// Address is a saved delivery location of the user.
type Address struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone"`
	Landmark   string `json:"landmark,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

// Preferred reports whether the address should be preselected at checkout.
func (a Address) Preferred() bool {
	return a.IsDefault || strings.EqualFold(a.Label, "home")
}

// Shipping converts a saved address into an order shipping address.
func (a Address) Shipping() ShippingAddress {
	return ShippingAddress{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		Landmark:   a.Landmark,
	}
}

// DeliverabilityResponse is the body of GET /location/check-deliverability.
type DeliverabilityResponse struct {
	Success       bool   `json:"success"`
	IsDeliverable bool   `json:"isDeliverable"`
	Message       string `json:"message,omitempty"`
}
