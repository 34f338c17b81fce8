package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/orders/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error)
	Set(ctx context.Context, cart *domain.ShoppingCart) error
	Delete(ctx context.Context, cartID domain.CartID) error
}

var ErrCacheMiss = errors.New("cache miss")
