package repository

import (
	"database/sql"
	"testing"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	sku      string
	qty      int
	price    string
	discount string
}

func money(t *testing.T, amount string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(amount, "USD")
	require.NoError(t, err)
	return m
}

func newTestOrder(t *testing.T, cartID domain.CartID, globalDiscount string, lines ...testLine) *domain.Order {
	t.Helper()

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		q, err := domain.NewQuantity(l.qty)
		require.NoError(t, err)
		item, err := domain.NewOrderItem(domain.ProductID(l.sku), q, money(t, l.price), money(t, l.discount))
		require.NoError(t, err)
		items = append(items, item)
	}

	addr, err := domain.NewShippingAddress(domain.AddressParams{
		Street:               "123 Main St",
		AddressLine2:         "Apt 4",
		City:                 "Springfield",
		StateOrProvince:      "IL",
		PostalCode:           "62701",
		Country:              "USA",
		DeliveryInstructions: "Leave at door",
	})
	require.NoError(t, err)

	order, _, err := domain.PlaceOrder(domain.PlaceOrderParams{
		CartID:          cartID,
		CustomerID:      "customer-123",
		Items:           items,
		ShippingAddress: addr,
		GlobalDiscount:  money(t, globalDiscount),
	})
	require.NoError(t, err)
	return order
}

func singleItemOrder(t *testing.T) *domain.Order {
	return newTestOrder(t, domain.NewCartID(), "0", testLine{"TEST-SKU-001", 1, "100.00", "0"})
}

func assertSameOrder(t *testing.T, want, got *domain.Order) {
	t.Helper()
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.CartID(), got.CartID())
	assert.Equal(t, want.CustomerID(), got.CustomerID())
	assert.Equal(t, want.ShippingAddress(), got.ShippingAddress())
	assert.True(t, want.Status().Equals(got.Status()))

	wantPayment, wantPaid := want.PaymentID()
	gotPayment, gotPaid := got.PaymentID()
	assert.Equal(t, wantPaid, gotPaid)
	assert.Equal(t, wantPayment, gotPayment)

	assert.Equal(t, want.TotalAmount().String(), got.TotalAmount().String())
	assert.Equal(t, want.GlobalDiscount().String(), got.GlobalDiscount().String())

	wantItems, gotItems := want.Items(), got.Items()
	require.Len(t, gotItems, len(wantItems))
	for i := range wantItems {
		assert.Equal(t, wantItems[i].ProductID(), gotItems[i].ProductID())
		assert.Equal(t, wantItems[i].Quantity(), gotItems[i].Quantity())
		assert.Equal(t, wantItems[i].UnitPrice().String(), gotItems[i].UnitPrice().String())
		assert.Equal(t, wantItems[i].ItemDiscount().String(), gotItems[i].ItemDiscount().String())
	}
}

func TestToPersistence(t *testing.T) {
	order := newTestOrder(t, domain.NewCartID(), "10.00",
		testLine{"SKU-A", 2, "50", "0"},
		testLine{"SKU-C", 3, "20", "5.00"},
	)

	orderRow, addressRow, itemRows := ToPersistence(order)

	assert.Equal(t, order.ID().String(), orderRow.OrderID)
	assert.Equal(t, "awaiting-payment", orderRow.Status)
	assert.False(t, orderRow.PaymentID.Valid)
	assert.Equal(t, "10", orderRow.GlobalDiscountAmount)
	assert.Equal(t, "USD", orderRow.GlobalDiscountCurrency)
	assert.Zero(t, orderRow.ShippingAddressID)

	assert.Zero(t, addressRow.ID)
	assert.Equal(t, sql.NullString{String: "Apt 4", Valid: true}, addressRow.AddressLine2)

	require.Len(t, itemRows, 2)
	assert.Equal(t, orderRow.OrderID, itemRows[0].OrderID)
	assert.Equal(t, "SKU-A", itemRows[0].ProductID)
	assert.Equal(t, "5", itemRows[1].ItemDiscountAmount)
}

func TestToDomain_RoundTrip(t *testing.T) {
	order := newTestOrder(t, domain.NewCartID(), "10.00",
		testLine{"SKU-A", 2, "50", "0"},
		testLine{"SKU-B", 1, "30", "0"},
		testLine{"SKU-C", 3, "20", "5.00"},
	)
	require.NoError(t, order.MarkAsPaid("payment-123"))

	orderRow, addressRow, itemRows := ToPersistence(order)
	loaded, err := ToDomain(orderRow, itemRows, &addressRow)
	require.NoError(t, err)

	assertSameOrder(t, order, loaded)
	assert.Equal(t, "175.00 USD", loaded.TotalAmount().String())
}

func TestToDomain_MissingAddress(t *testing.T) {
	orderRow, _, itemRows := ToPersistence(singleItemOrder(t))

	_, err := ToDomain(orderRow, itemRows, nil)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
}

func TestToDomain_UnknownStatus(t *testing.T) {
	orderRow, addressRow, itemRows := ToPersistence(singleItemOrder(t))
	orderRow.Status = "shipped"

	_, err := ToDomain(orderRow, itemRows, &addressRow)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderStatus)
}

func TestToDomain_NoItems(t *testing.T) {
	orderRow, addressRow, _ := ToPersistence(singleItemOrder(t))

	_, err := ToDomain(orderRow, nil, &addressRow)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestToDomain_BadAmount(t *testing.T) {
	orderRow, addressRow, itemRows := ToPersistence(singleItemOrder(t))
	itemRows[0].UnitPriceAmount = "abc"

	_, err := ToDomain(orderRow, itemRows, &addressRow)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
	assert.ErrorIs(t, err, domain.ErrInvalidMoney)
}

func TestToDomain_AmountBeyondStoredScale(t *testing.T) {
	orderRow, addressRow, itemRows := ToPersistence(singleItemOrder(t))
	itemRows[0].UnitPriceAmount = "19.99995"

	_, err := ToDomain(orderRow, itemRows, &addressRow)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
	assert.ErrorIs(t, err, domain.ErrInvalidMoney)
}

func TestToPersistence_AmountsFitStoredScale(t *testing.T) {
	order := newTestOrder(t, domain.NewCartID(), "0.0001",
		testLine{sku: "SKU-A", qty: 3, price: "19.9999", discount: "0.0003"})

	orderRow, addressRow, itemRows := ToPersistence(order)
	require.Len(t, itemRows, 1)
	assert.Equal(t, "19.9999", itemRows[0].UnitPriceAmount)

	loaded, err := ToDomain(orderRow, itemRows, &addressRow)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount().Amount().Equal(loaded.TotalAmount().Amount()))
}
