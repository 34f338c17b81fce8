package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/orders/internal/cache"
	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/repository"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	sfg    singleflight.Group // Prevents cache stampede
	logger *zap.Logger
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, l *zap.Logger) *CartService {
	if l == nil {
		l = zap.NewNop()
	}
	return &CartService{
		repo:   repo,
		cache:  cache,
		logger: l.Named("cart_service"),
	}
}

func (s *CartService) CreateCart(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	cart := domain.NewShoppingCart(customerID)
	if err := s.repo.Save(ctx, cart); err != nil {
		logger.Error(ctx, s.logger, "repo save cart error", zap.String("customer_id", customerID.String()), zap.Error(err))
		return nil, err
	}
	return cart, nil
}

// GetCart reads through the cache. Concurrent misses for one cart share a
// single repository read. The returned cart may be shared between callers and
// must not be mutated.
func (s *CartService) GetCart(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error) {
	v, err, _ := s.sfg.Do(cartID.String(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn(ctx, s.logger, "cache get error", zap.String("cart_id", cartID.String()), zap.Error(err))
		}

		cart, err = s.repo.FindByID(ctx, cartID)
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), cart); errSet != nil {
				s.logger.Warn("cache set error", zap.String("cart_id", cartID.String()), zap.Error(errSet))
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.ShoppingCart), nil
}

// LoadCart reads the stored cart, bypassing the cache. Checkout prices from it
// so a stale cache entry can never decide what gets ordered.
func (s *CartService) LoadCart(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error) {
	return s.repo.FindByID(ctx, cartID)
}

func (s *CartService) AddItem(ctx context.Context, cartID domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, cartID, "add item", func(cart *domain.ShoppingCart) error {
		return cart.AddItem(productID, quantity)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, cartID domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, cartID, "update item quantity", func(cart *domain.ShoppingCart) error {
		return cart.UpdateItemQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID domain.CartID, productID domain.ProductID) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, cartID, "remove item", func(cart *domain.ShoppingCart) error {
		return cart.RemoveItem(productID)
	})
}

func (s *CartService) MarkConverted(ctx context.Context, cartID domain.CartID) error {
	_, err := s.mutate(ctx, cartID, "mark converted", func(cart *domain.ShoppingCart) error {
		return cart.MarkAsConverted()
	})
	return err
}

func (s *CartService) DeleteCart(ctx context.Context, cartID domain.CartID) error {
	if err := s.repo.Delete(ctx, cartID); err != nil {
		logger.Error(ctx, s.logger, "repo delete cart error", zap.String("cart_id", cartID.String()), zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// mutate always loads from the repository, never from the cache.
func (s *CartService) mutate(ctx context.Context, cartID domain.CartID, op string, fn func(*domain.ShoppingCart) error) (*domain.ShoppingCart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		logger.Error(ctx, s.logger, "repo save cart error", zap.String("op", op), zap.String("cart_id", cartID.String()), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateCache(cartID)
	return cart, nil
}

func (s *CartService) invalidateCache(cartID domain.CartID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("cart_id", cartID.String()), zap.Error(err))
	}
}
