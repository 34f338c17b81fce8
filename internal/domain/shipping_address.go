package domain

import (
	"fmt"
	"strings"
)

// ShippingAddress has no identity; two addresses are equal when all fields match.
// AddressLine2 and DeliveryInstructions are optional and empty when absent.
type ShippingAddress struct {
	Street               string `json:"street"`
	AddressLine2         string `json:"address_line2,omitempty"`
	City                 string `json:"city"`
	StateOrProvince      string `json:"state_or_province"`
	PostalCode           string `json:"postal_code"`
	Country              string `json:"country"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`
}

type AddressParams struct {
	Street               string
	AddressLine2         string
	City                 string
	StateOrProvince      string
	PostalCode           string
	Country              string
	DeliveryInstructions string
}

func NewShippingAddress(p AddressParams) (ShippingAddress, error) {
	required := []struct {
		name  string
		value string
	}{
		{"street", p.Street},
		{"city", p.City},
		{"state or province", p.StateOrProvince},
		{"postal code", p.PostalCode},
		{"country", p.Country},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return ShippingAddress{}, fmt.Errorf("%w: %s is required", ErrInvalidAddress, field.name)
		}
	}

	return ShippingAddress{
		Street:               p.Street,
		AddressLine2:         p.AddressLine2,
		City:                 p.City,
		StateOrProvince:      p.StateOrProvince,
		PostalCode:           p.PostalCode,
		Country:              p.Country,
		DeliveryInstructions: p.DeliveryInstructions,
	}, nil
}

func (a ShippingAddress) Equals(other ShippingAddress) bool {
	return a == other
}
