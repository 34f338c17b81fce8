package domain

import (
	"encoding/json"
	"fmt"
)

// OrderItem is a priced line of an order.
type OrderItem struct {
	productID    ProductID
	quantity     Quantity
	unitPrice    Money
	itemDiscount Money
}

func NewOrderItem(productID ProductID, quantity Quantity, unitPrice, itemDiscount Money) (OrderItem, error) {
	if quantity.Int() <= 0 {
		return OrderItem{}, fmt.Errorf("%w: item %s has quantity %d", ErrInvalidQuantity, productID, quantity.Int())
	}
	if unitPrice.Currency() != itemDiscount.Currency() {
		return OrderItem{}, fmt.Errorf("%w: item %s priced in %s but discounted in %s",
			ErrCurrencyMismatch, productID, unitPrice.Currency(), itemDiscount.Currency())
	}
	return OrderItem{
		productID:    productID,
		quantity:     quantity,
		unitPrice:    unitPrice,
		itemDiscount: itemDiscount,
	}, nil
}

func (i OrderItem) ProductID() ProductID {
	return i.productID
}

func (i OrderItem) Quantity() Quantity {
	return i.quantity
}

func (i OrderItem) UnitPrice() Money {
	return i.unitPrice
}

func (i OrderItem) ItemDiscount() Money {
	return i.itemDiscount
}

// Subtotal is unitPrice * quantity - itemDiscount. Currencies were checked by NewOrderItem.
func (i OrderItem) Subtotal() Money {
	gross := i.unitPrice.Multiply(i.quantity)
	return Money{amount: gross.amount.Sub(i.itemDiscount.amount), currency: gross.currency}
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID    string `json:"product_id"`
		Quantity     int    `json:"quantity"`
		UnitPrice    Money  `json:"unit_price"`
		ItemDiscount Money  `json:"item_discount"`
		Subtotal     Money  `json:"subtotal"`
	}{
		ProductID:    i.productID.String(),
		Quantity:     i.quantity.Int(),
		UnitPrice:    i.unitPrice,
		ItemDiscount: i.itemDiscount,
		Subtotal:     i.Subtotal(),
	})
}
