package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/orders/internal/domain"
)

var (
	// ErrCorruptAggregate means stored rows cannot be turned back into a valid order.
	ErrCorruptAggregate = errors.New("stored order is corrupt")
	// ErrOrderConflict is returned when a concurrent writer inserted the same order or cart first.
	ErrOrderConflict = errors.New("order already exists")
	ErrCartNotFound  = errors.New("cart not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OrderRepository persists the Order aggregate. Lookups report absence with
// found == false and a nil error.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, bool, error)
	FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, bool, error)
}

type CartRepository interface {
	Save(ctx context.Context, cart *domain.ShoppingCart) error
	FindByID(ctx context.Context, id domain.CartID) (*domain.ShoppingCart, error)
	FindByCustomerID(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error)
	Delete(ctx context.Context, id domain.CartID) error
}
