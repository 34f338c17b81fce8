package domain

import "context"

// PricingGateway supplies prices and discounts at checkout time.
type PricingGateway interface {
	ProductPrice(ctx context.Context, productID ProductID) (Money, error)
	ProductDiscount(ctx context.Context, productID ProductID, customerID CustomerID, quantity Quantity) (Money, error)
	OrderDiscount(ctx context.Context, customerID CustomerID, orderTotal Money) (Money, error)
}
