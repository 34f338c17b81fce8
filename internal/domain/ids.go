package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type OrderID string

type CartID string

type CustomerID string

type ProductID string

type EventID string

func NewOrderID() OrderID {
	return OrderID(uuid.NewString())
}

func OrderIDFromString(value string) (OrderID, error) {
	if err := validateUUID("order id", value); err != nil {
		return "", err
	}
	return OrderID(value), nil
}

func (id OrderID) String() string {
	return string(id)
}

func NewCartID() CartID {
	return CartID(uuid.NewString())
}

func CartIDFromString(value string) (CartID, error) {
	if err := validateUUID("cart id", value); err != nil {
		return "", err
	}
	return CartID(value), nil
}

func (id CartID) String() string {
	return string(id)
}

func CustomerIDFromString(value string) (CustomerID, error) {
	if err := validateNotBlank("customer id", value); err != nil {
		return "", err
	}
	return CustomerID(value), nil
}

func (id CustomerID) String() string {
	return string(id)
}

func ProductIDFromString(value string) (ProductID, error) {
	if err := validateNotBlank("product id", value); err != nil {
		return "", err
	}
	return ProductID(value), nil
}

func (id ProductID) String() string {
	return string(id)
}

func NewEventID() EventID {
	return EventID(uuid.NewString())
}

func (id EventID) String() string {
	return string(id)
}

func validateUUID(kind, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %s %q is not a valid uuid", ErrInvalidIdentifier, kind, value)
	}
	return nil
}

func validateNotBlank(kind, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidIdentifier, kind)
	}
	return nil
}
