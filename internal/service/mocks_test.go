package service

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/orders/internal/cache"
	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/repository"
)

type storedOrder struct {
	row     repository.OrderRow
	address repository.ShippingAddressRow
	items   []repository.OrderItemRow
}

// MockOrderRepository keeps rows, not pointers, so every load is a fresh aggregate.
type MockOrderRepository struct {
	mu      sync.Mutex
	orders  map[domain.OrderID]storedOrder
	SaveErr error
	Saves   int
}

func newMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[domain.OrderID]storedOrder)}
}

func (m *MockOrderRepository) Save(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	row, address, items := repository.ToPersistence(order)
	m.orders[order.ID()] = storedOrder{row: row, address: address, items: items}
	return nil
}

func (m *MockOrderRepository) FindByID(_ context.Context, id domain.OrderID) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	order, err := repository.ToDomain(s.row, s.items, &s.address)
	return order, err == nil, err
}

func (m *MockOrderRepository) FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, bool, error) {
	m.mu.Lock()
	var id domain.OrderID
	for orderID, s := range m.orders {
		if s.row.CartID == cartID.String() {
			id = orderID
		}
	}
	m.mu.Unlock()
	if id == "" {
		return nil, false, nil
	}
	return m.FindByID(ctx, id)
}

type MockCartRepository struct {
	mu      sync.Mutex
	carts   map[domain.CartID]domain.CartSnapshot
	Reads   int
	SaveErr error
}

func newMockCartRepository() *MockCartRepository {
	return &MockCartRepository{carts: make(map[domain.CartID]domain.CartSnapshot)}
}

func (m *MockCartRepository) Save(_ context.Context, cart *domain.ShoppingCart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.carts[cart.ID()] = cart.Snapshot()
	return nil
}

func (m *MockCartRepository) FindByID(_ context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	snap, ok := m.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return domain.ReconstituteCart(snap)
}

func (m *MockCartRepository) FindByCustomerID(_ context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, snap := range m.carts {
		if snap.CustomerID == customerID && snap.Status == domain.CartStatusActive {
			return domain.ReconstituteCart(snap)
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *MockCartRepository) Delete(_ context.Context, id domain.CartID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, id)
	return nil
}

type MockCache struct {
	mu      sync.Mutex
	carts   map[domain.CartID]domain.CartSnapshot
	Deletes int
}

func newMockCache() *MockCache {
	return &MockCache{carts: make(map[domain.CartID]domain.CartSnapshot)}
}

func (m *MockCache) Get(_ context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.carts[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return domain.ReconstituteCart(snap)
}

func (m *MockCache) Set(_ context.Context, cart *domain.ShoppingCart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID()] = cart.Snapshot()
	return nil
}

func (m *MockCache) Delete(_ context.Context, id domain.CartID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.carts, id)
	return nil
}

func (m *MockCache) has(id domain.CartID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[id]
	return ok
}

// MockPricing prices every product from Prices; discounts are looked up by product.
type MockPricing struct {
	Prices            map[domain.ProductID]domain.Money
	Discounts         map[domain.ProductID]domain.Money
	OrderDiscountFunc func(total domain.Money) domain.Money
	Err               error
}

func (m *MockPricing) ProductPrice(_ context.Context, id domain.ProductID) (domain.Money, error) {
	if m.Err != nil {
		return domain.Money{}, m.Err
	}
	return m.Prices[id], nil
}

func (m *MockPricing) ProductDiscount(_ context.Context, id domain.ProductID, _ domain.CustomerID, _ domain.Quantity) (domain.Money, error) {
	if d, ok := m.Discounts[id]; ok {
		return d, nil
	}
	return domain.Zero(m.Prices[id].Currency())
}

func (m *MockPricing) OrderDiscount(_ context.Context, _ domain.CustomerID, total domain.Money) (domain.Money, error) {
	if m.OrderDiscountFunc != nil {
		return m.OrderDiscountFunc(total), nil
	}
	return domain.Zero(total.Currency())
}

type published struct {
	topic   string
	payload any
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []published
}

func (m *MockPublisher) Publish(_ context.Context, topic string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, published{topic: topic, payload: payload})
}
