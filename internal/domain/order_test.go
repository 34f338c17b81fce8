package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T) ShippingAddress {
	t.Helper()
	addr, err := NewShippingAddress(AddressParams{
		Street:          "123 Main St",
		City:            "Springfield",
		StateOrProvince: "IL",
		PostalCode:      "62701",
		Country:         "USA",
	})
	require.NoError(t, err)
	return addr
}

func testItem(t *testing.T, sku string, qty int, price, discount string) OrderItem {
	t.Helper()
	productID, err := ProductIDFromString(sku)
	require.NoError(t, err)
	q, err := NewQuantity(qty)
	require.NoError(t, err)
	item, err := NewOrderItem(productID, q, usd(t, price), usd(t, discount))
	require.NoError(t, err)
	return item
}

func placeParams(t *testing.T, globalDiscount string, items ...OrderItem) PlaceOrderParams {
	t.Helper()
	customerID, err := CustomerIDFromString("customer-1")
	require.NoError(t, err)
	return PlaceOrderParams{
		CartID:          NewCartID(),
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: testAddress(t),
		GlobalDiscount:  usd(t, globalDiscount),
	}
}

func TestPlaceOrder_SingleItem(t *testing.T) {
	params := placeParams(t, "0", testItem(t, "TEST-SKU-001", 1, "100.00", "0"))

	order, event, err := PlaceOrder(params)
	require.NoError(t, err)

	assert.Equal(t, "100.00 USD", order.TotalAmount().String())
	assert.True(t, order.Status().IsAwaitingPayment())
	_, paid := order.PaymentID()
	assert.False(t, paid)
	assert.Equal(t, params.CartID, order.CartID())

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, order.ID().String(), event.AggregateID)
	assert.Equal(t, order.ID(), event.OrderID)
	assert.Equal(t, OrderPlacedTopic, event.EventType())
	assert.Equal(t, "100.00 USD", event.TotalAmount.String())
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 5*time.Second)
}

func TestPlaceOrder_ThreeItemsWithDiscounts(t *testing.T) {
	params := placeParams(t, "10.00",
		testItem(t, "SKU-A", 2, "50", "0"),
		testItem(t, "SKU-B", 1, "30", "0"),
		testItem(t, "SKU-C", 3, "20", "5.00"),
	)

	order, _, err := PlaceOrder(params)
	require.NoError(t, err)

	assert.Equal(t, "185.00 USD", order.Subtotal().String())
	assert.Equal(t, "175.00 USD", order.TotalAmount().String())

	items := order.Items()
	require.Len(t, items, 3)
	assert.Equal(t, ProductID("SKU-A"), items[0].ProductID())
	assert.Equal(t, ProductID("SKU-C"), items[2].ProductID())
	assert.Equal(t, "55.00 USD", items[2].Subtotal().String())
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	_, _, err := PlaceOrder(placeParams(t, "0"))
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.True(t, IsValidation(err))
}

func TestPlaceOrder_CurrencyMismatch(t *testing.T) {
	params := placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0"))
	eur, err := ParseMoney("1", "EUR")
	require.NoError(t, err)
	params.GlobalDiscount = eur

	_, _, err = PlaceOrder(params)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestNewOrderItem_CurrencyMismatch(t *testing.T) {
	q, err := NewQuantity(1)
	require.NoError(t, err)
	eur, err := ParseMoney("0", "EUR")
	require.NoError(t, err)

	_, err = NewOrderItem("SKU-A", q, usd(t, "10"), eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestNewOrderItem_ZeroQuantity(t *testing.T) {
	_, err := NewOrderItem("SKU-A", Quantity{}, usd(t, "10"), usd(t, "0"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPlaceOrder_ItemsAreCopied(t *testing.T) {
	items := []OrderItem{testItem(t, "SKU-A", 1, "10", "0")}
	order, _, err := PlaceOrder(placeParams(t, "0", items...))
	require.NoError(t, err)

	items[0] = testItem(t, "SKU-Z", 9, "99", "0")
	got := order.Items()
	assert.Equal(t, ProductID("SKU-A"), got[0].ProductID())

	got[0] = items[0]
	assert.Equal(t, ProductID("SKU-A"), order.Items()[0].ProductID())
}

func TestOrder_MarkAsPaid(t *testing.T) {
	order, _, err := PlaceOrder(placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0")))
	require.NoError(t, err)

	require.NoError(t, order.MarkAsPaid("payment-123"))
	assert.True(t, order.Status().IsPaid())
	paymentID, ok := order.PaymentID()
	assert.True(t, ok)
	assert.Equal(t, "payment-123", paymentID)
}

func TestOrder_MarkAsPaid_Twice(t *testing.T) {
	order, _, err := PlaceOrder(placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0")))
	require.NoError(t, err)
	require.NoError(t, order.MarkAsPaid("payment-123"))

	err = order.MarkAsPaid("payment-456")
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
	assert.False(t, IsValidation(err))

	paymentID, _ := order.PaymentID()
	assert.Equal(t, "payment-123", paymentID)
	assert.True(t, order.Status().IsPaid())
}

func TestOrder_MarkAsPaid_BlankPaymentID(t *testing.T) {
	order, _, err := PlaceOrder(placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0")))
	require.NoError(t, err)

	assert.ErrorIs(t, order.MarkAsPaid("  "), ErrMissingPaymentID)
	assert.True(t, order.Status().IsAwaitingPayment())
}

func reconstituteFrom(o *Order) ReconstituteParams {
	paymentID, _ := o.PaymentID()
	return ReconstituteParams{
		OrderID:         o.ID(),
		CartID:          o.CartID(),
		CustomerID:      o.CustomerID(),
		Items:           o.Items(),
		ShippingAddress: o.ShippingAddress(),
		GlobalDiscount:  o.GlobalDiscount(),
		Status:          o.Status(),
		PaymentID:       paymentID,
	}
}

func TestReconstituteOrder_PreservesState(t *testing.T) {
	original, _, err := PlaceOrder(placeParams(t, "1", testItem(t, "SKU-A", 2, "10", "0")))
	require.NoError(t, err)
	require.NoError(t, original.MarkAsPaid("payment-123"))

	loaded, err := ReconstituteOrder(reconstituteFrom(original))
	require.NoError(t, err)

	assert.Equal(t, original.ID(), loaded.ID())
	assert.True(t, loaded.Status().IsPaid())
	paymentID, _ := loaded.PaymentID()
	assert.Equal(t, "payment-123", paymentID)
	assert.Equal(t, "19.00 USD", loaded.TotalAmount().String())
}

func TestReconstituteOrder_InconsistentPayment(t *testing.T) {
	order, _, err := PlaceOrder(placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0")))
	require.NoError(t, err)

	params := reconstituteFrom(order)
	params.PaymentID = "payment-123"
	_, err = ReconstituteOrder(params)
	assert.ErrorIs(t, err, ErrInvalidOrderState)

	params.Status = Paid()
	params.PaymentID = ""
	_, err = ReconstituteOrder(params)
	assert.ErrorIs(t, err, ErrInvalidOrderState)
}

func TestReconstituteOrder_ZeroStatus(t *testing.T) {
	order, _, err := PlaceOrder(placeParams(t, "0", testItem(t, "SKU-A", 1, "10", "0")))
	require.NoError(t, err)

	params := reconstituteFrom(order)
	params.Status = OrderStatus{}
	_, err = ReconstituteOrder(params)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestOrderPlaced_MarshalJSON(t *testing.T) {
	_, event, err := PlaceOrder(placeParams(t, "0", testItem(t, "TEST-SKU-001", 1, "100", "0")))
	require.NoError(t, err)

	data, err := event.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"orders.OrderPlaced"`)
	assert.Contains(t, string(data), `"total_amount":{"amount":"100.00","currency":"USD"}`)
	assert.Contains(t, string(data), `"product_id":"TEST-SKU-001"`)
}
