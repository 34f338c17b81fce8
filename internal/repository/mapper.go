package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
)

type ShippingAddressRow struct {
	ID                   int64
	Street               string
	AddressLine2         sql.NullString
	City                 string
	StateOrProvince      string
	PostalCode           string
	Country              string
	DeliveryInstructions sql.NullString
}

// OrderRow mirrors the orders table. ShippingAddressID is zero until the
// address row has been written.
type OrderRow struct {
	OrderID                string
	CartID                 string
	CustomerID             string
	Status                 string
	PaymentID              sql.NullString
	GlobalDiscountAmount   string
	GlobalDiscountCurrency string
	ShippingAddressID      int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type OrderItemRow struct {
	ID                   int64
	OrderID              string
	ProductID            string
	Quantity             int
	UnitPriceAmount      string
	UnitPriceCurrency    string
	ItemDiscountAmount   string
	ItemDiscountCurrency string
}

// ToPersistence splits an order into its three row shapes. Amounts are decimal strings.
func ToPersistence(o *domain.Order) (OrderRow, ShippingAddressRow, []OrderItemRow) {
	addr := o.ShippingAddress()
	addressRow := ShippingAddressRow{
		Street:               addr.Street,
		AddressLine2:         nullString(addr.AddressLine2),
		City:                 addr.City,
		StateOrProvince:      addr.StateOrProvince,
		PostalCode:           addr.PostalCode,
		Country:              addr.Country,
		DeliveryInstructions: nullString(addr.DeliveryInstructions),
	}

	paymentID, _ := o.PaymentID()
	orderRow := OrderRow{
		OrderID:                o.ID().String(),
		CartID:                 o.CartID().String(),
		CustomerID:             o.CustomerID().String(),
		Status:                 o.Status().String(),
		PaymentID:              nullString(paymentID),
		GlobalDiscountAmount:   o.GlobalDiscount().Amount().String(),
		GlobalDiscountCurrency: o.GlobalDiscount().Currency(),
	}

	items := o.Items()
	itemRows := make([]OrderItemRow, 0, len(items))
	for _, item := range items {
		itemRows = append(itemRows, OrderItemRow{
			OrderID:              orderRow.OrderID,
			ProductID:            item.ProductID().String(),
			Quantity:             item.Quantity().Int(),
			UnitPriceAmount:      item.UnitPrice().Amount().String(),
			UnitPriceCurrency:    item.UnitPrice().Currency(),
			ItemDiscountAmount:   item.ItemDiscount().Amount().String(),
			ItemDiscountCurrency: item.ItemDiscount().Currency(),
		})
	}

	return orderRow, addressRow, itemRows
}

// ToDomain rebuilds an order from its rows without emitting events. A nil address
// or any value the domain rejects is reported as ErrCorruptAggregate.
func ToDomain(row OrderRow, itemRows []OrderItemRow, address *ShippingAddressRow) (*domain.Order, error) {
	if address == nil {
		return nil, fmt.Errorf("%w: order %s has no shipping address row", ErrCorruptAggregate, row.OrderID)
	}

	order, err := toDomain(row, itemRows, address)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrCorruptAggregate, row.OrderID, err)
	}
	return order, nil
}

func toDomain(row OrderRow, itemRows []OrderItemRow, address *ShippingAddressRow) (*domain.Order, error) {
	orderID, err := domain.OrderIDFromString(row.OrderID)
	if err != nil {
		return nil, err
	}
	cartID, err := domain.CartIDFromString(row.CartID)
	if err != nil {
		return nil, err
	}
	customerID, err := domain.CustomerIDFromString(row.CustomerID)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseOrderStatus(row.Status)
	if err != nil {
		return nil, err
	}
	globalDiscount, err := domain.ParseMoney(row.GlobalDiscountAmount, row.GlobalDiscountCurrency)
	if err != nil {
		return nil, fmt.Errorf("global discount: %w", err)
	}
	shippingAddress, err := domain.NewShippingAddress(domain.AddressParams{
		Street:               address.Street,
		AddressLine2:         address.AddressLine2.String,
		City:                 address.City,
		StateOrProvince:      address.StateOrProvince,
		PostalCode:           address.PostalCode,
		Country:              address.Country,
		DeliveryInstructions: address.DeliveryInstructions.String,
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(itemRows))
	for _, ir := range itemRows {
		item, err := itemToDomain(ir)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", ir.ID, err)
		}
		items = append(items, item)
	}

	return domain.ReconstituteOrder(domain.ReconstituteParams{
		OrderID:         orderID,
		CartID:          cartID,
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: shippingAddress,
		GlobalDiscount:  globalDiscount,
		Status:          status,
		PaymentID:       row.PaymentID.String,
	})
}

func itemToDomain(row OrderItemRow) (domain.OrderItem, error) {
	productID, err := domain.ProductIDFromString(row.ProductID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	quantity, err := domain.NewQuantity(row.Quantity)
	if err != nil {
		return domain.OrderItem{}, err
	}
	unitPrice, err := domain.ParseMoney(row.UnitPriceAmount, row.UnitPriceCurrency)
	if err != nil {
		return domain.OrderItem{}, err
	}
	itemDiscount, err := domain.ParseMoney(row.ItemDiscountAmount, row.ItemDiscountCurrency)
	if err != nil {
		return domain.OrderItem{}, err
	}
	return domain.NewOrderItem(productID, quantity, unitPrice, itemDiscount)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
