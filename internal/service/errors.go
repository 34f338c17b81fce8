package service

import (
	"errors"

	"github.com/fjod/go_cart/orders/internal/repository"
)

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to checkout")
	ErrOrderNotFound = errors.New("order not found")
	ErrCartNotFound  = repository.ErrCartNotFound
)
