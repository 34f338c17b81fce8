package http

import (
	"context"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/service"
)

type CartServiceMock struct {
	cart *domain.ShoppingCart
	err  error

	gotProductID domain.ProductID
	gotQuantity  int
}

func (m *CartServiceMock) CreateCart(_ context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.NewShoppingCart(customerID), nil
}

func (m *CartServiceMock) GetCart(context.Context, domain.CartID) (*domain.ShoppingCart, error) {
	return m.cart, m.err
}

func (m *CartServiceMock) AddItem(_ context.Context, _ domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	m.gotProductID, m.gotQuantity = productID, quantity.Int()
	if m.err != nil {
		return nil, m.err
	}
	if err := m.cart.AddItem(productID, quantity); err != nil {
		return nil, err
	}
	return m.cart, nil
}

func (m *CartServiceMock) UpdateQuantity(_ context.Context, _ domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	m.gotProductID, m.gotQuantity = productID, quantity.Int()
	return m.cart, m.err
}

func (m *CartServiceMock) RemoveItem(_ context.Context, _ domain.CartID, productID domain.ProductID) (*domain.ShoppingCart, error) {
	m.gotProductID = productID
	return m.cart, m.err
}

func (m *CartServiceMock) DeleteCart(context.Context, domain.CartID) error {
	return m.err
}

type OrderServiceMock struct {
	order *domain.Order
	err   error

	gotCheckout  service.CheckoutRequest
	gotPaymentID string
}

func (m *OrderServiceMock) Checkout(_ context.Context, req service.CheckoutRequest) (*domain.Order, error) {
	m.gotCheckout = req
	return m.order, m.err
}

func (m *OrderServiceMock) GetOrder(context.Context, domain.OrderID) (*domain.Order, error) {
	return m.order, m.err
}

func (m *OrderServiceMock) ConfirmPayment(_ context.Context, _ domain.OrderID, paymentID string) (*domain.Order, error) {
	m.gotPaymentID = paymentID
	if m.err != nil {
		return nil, m.err
	}
	if err := m.order.MarkAsPaid(paymentID); err != nil {
		return nil, err
	}
	return m.order, nil
}
