package domain

import (
	"fmt"
	"strings"
	"time"
)

// Order is the aggregate root of an order placed from a shopping cart.
//
// Invariants held by every *Order value:
//   - at least one item;
//   - every item and the global discount share one currency;
//   - the payment id is empty while awaiting payment and set once paid.
//
// The total is derived from items and discounts on every call and never stored.
type Order struct {
	id              OrderID
	cartID          CartID
	customerID      CustomerID
	items           []OrderItem
	shippingAddress ShippingAddress
	globalDiscount  Money
	status          OrderStatus
	paymentID       string
}

type PlaceOrderParams struct {
	CartID          CartID
	CustomerID      CustomerID
	Items           []OrderItem
	ShippingAddress ShippingAddress
	GlobalDiscount  Money
}

// PlaceOrder creates a new order awaiting payment and returns the OrderPlaced event
// describing it. This is the only path that emits OrderPlaced.
func PlaceOrder(p PlaceOrderParams) (*Order, OrderPlaced, error) {
	o := &Order{
		id:              NewOrderID(),
		cartID:          p.CartID,
		customerID:      p.CustomerID,
		items:           cloneItems(p.Items),
		shippingAddress: p.ShippingAddress,
		globalDiscount:  p.GlobalDiscount,
		status:          AwaitingPayment(),
	}

	total, err := o.validate()
	if err != nil {
		return nil, OrderPlaced{}, err
	}

	return o, newOrderPlaced(o, total, time.Now().UTC()), nil
}

type ReconstituteParams struct {
	OrderID         OrderID
	CartID          CartID
	CustomerID      CustomerID
	Items           []OrderItem
	ShippingAddress ShippingAddress
	GlobalDiscount  Money
	Status          OrderStatus
	PaymentID       string
}

// ReconstituteOrder rebuilds an order from stored state without emitting events.
func ReconstituteOrder(p ReconstituteParams) (*Order, error) {
	o := &Order{
		id:              p.OrderID,
		cartID:          p.CartID,
		customerID:      p.CustomerID,
		items:           cloneItems(p.Items),
		shippingAddress: p.ShippingAddress,
		globalDiscount:  p.GlobalDiscount,
		status:          p.Status,
		paymentID:       p.PaymentID,
	}
	if _, err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkAsPaid moves the order from awaiting-payment to paid. Paying twice is an error,
// so a recorded payment id is never overwritten.
func (o *Order) MarkAsPaid(paymentID string) error {
	if strings.TrimSpace(paymentID) == "" {
		return ErrMissingPaymentID
	}
	if o.status.IsPaid() {
		return fmt.Errorf("%w: order %s has payment %s", ErrOrderAlreadyPaid, o.id, o.paymentID)
	}
	o.status = o.status.ToPaid()
	o.paymentID = paymentID
	return nil
}

func (o *Order) ID() OrderID {
	return o.id
}

func (o *Order) CartID() CartID {
	return o.cartID
}

func (o *Order) CustomerID() CustomerID {
	return o.customerID
}

func (o *Order) Items() []OrderItem {
	return cloneItems(o.items)
}

func (o *Order) ShippingAddress() ShippingAddress {
	return o.shippingAddress
}

func (o *Order) GlobalDiscount() Money {
	return o.globalDiscount
}

func (o *Order) Status() OrderStatus {
	return o.status
}

// PaymentID reports the payment id and whether one has been recorded.
func (o *Order) PaymentID() (string, bool) {
	return o.paymentID, o.paymentID != ""
}

func (o *Order) Currency() string {
	return o.globalDiscount.Currency()
}

// Subtotal is the sum of line subtotals before the global discount.
func (o *Order) Subtotal() Money {
	subtotal, _ := sumItems(o.items, o.Currency())
	return subtotal
}

// TotalAmount is the sum of line subtotals minus the global discount.
func (o *Order) TotalAmount() Money {
	total, _ := computeTotal(o.items, o.globalDiscount)
	return total
}

func (o *Order) validate() (Money, error) {
	if len(o.items) == 0 {
		return Money{}, ErrEmptyOrder
	}

	switch {
	case o.status.IsAwaitingPayment():
		if o.paymentID != "" {
			return Money{}, fmt.Errorf("%w: order %s awaits payment but has payment id %s",
				ErrInvalidOrderState, o.id, o.paymentID)
		}
	case o.status.IsPaid():
		if o.paymentID == "" {
			return Money{}, fmt.Errorf("%w: order %s is paid without a payment id", ErrInvalidOrderState, o.id)
		}
	default:
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, o.status.String())
	}

	return computeTotal(o.items, o.globalDiscount)
}

func computeTotal(items []OrderItem, globalDiscount Money) (Money, error) {
	subtotal, err := sumItems(items, globalDiscount.Currency())
	if err != nil {
		return Money{}, err
	}
	return subtotal.Subtract(globalDiscount)
}

func sumItems(items []OrderItem, currency string) (Money, error) {
	total, err := Zero(currency)
	if err != nil {
		return Money{}, err
	}
	for _, item := range items {
		total, err = total.Add(item.Subtotal())
		if err != nil {
			return Money{}, fmt.Errorf("item %s: %w", item.ProductID(), err)
		}
	}
	return total, nil
}

func cloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}
