package domain

import (
	"encoding/json"
	"time"
)

const OrderPlacedTopic = "orders.OrderPlaced"

// OrderPlaced records that an order was placed from a cart. It is built once by
// PlaceOrder and carries a snapshot of the order at that moment.
type OrderPlaced struct {
	EventID         EventID
	AggregateID     string
	OccurredAt      time.Time
	OrderID         OrderID
	CustomerID      CustomerID
	CartID          CartID
	Items           []OrderItem
	TotalAmount     Money
	ShippingAddress ShippingAddress
}

func newOrderPlaced(o *Order, total Money, at time.Time) OrderPlaced {
	return OrderPlaced{
		EventID:         NewEventID(),
		AggregateID:     o.id.String(),
		OccurredAt:      at,
		OrderID:         o.id,
		CustomerID:      o.customerID,
		CartID:          o.cartID,
		Items:           cloneItems(o.items),
		TotalAmount:     total,
		ShippingAddress: o.shippingAddress,
	}
}

func (e OrderPlaced) EventType() string {
	return OrderPlacedTopic
}

func (e OrderPlaced) AggregateKey() string {
	return e.AggregateID
}

func (e OrderPlaced) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID         string          `json:"event_id"`
		EventType       string          `json:"event_type"`
		AggregateID     string          `json:"aggregate_id"`
		OccurredAt      time.Time       `json:"occurred_at"`
		OrderID         string          `json:"order_id"`
		CustomerID      string          `json:"customer_id"`
		CartID          string          `json:"cart_id"`
		Items           []OrderItem     `json:"items"`
		TotalAmount     Money           `json:"total_amount"`
		ShippingAddress ShippingAddress `json:"shipping_address"`
	}{
		EventID:         e.EventID.String(),
		EventType:       e.EventType(),
		AggregateID:     e.AggregateID,
		OccurredAt:      e.OccurredAt,
		OrderID:         e.OrderID.String(),
		CustomerID:      e.CustomerID.String(),
		CartID:          e.CartID.String(),
		Items:           e.Items,
		TotalAmount:     e.TotalAmount,
		ShippingAddress: e.ShippingAddress,
	})
}
