package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/redis/go-redis/v9"
)

type cachedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cachedCart struct {
	ID         string       `json:"id"`
	CustomerID string       `json:"customer_id"`
	Status     string       `json:"status"`
	Items      []cachedItem `json:"items"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error) {
	key := cacheKey(cartID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedCart
	if err2 := json.Unmarshal(data, &cached); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return cached.toDomain()
}

// Set stores the cart with the base TTL plus up to five minutes of jitter so
// entries written together do not expire together.
func (r RedisCache) Set(ctx context.Context, cart *domain.ShoppingCart) error {
	key := cacheKey(cart.ID())
	jsonCart, err := json.Marshal(fromDomain(cart))
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, string(jsonCart), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, cartID domain.CartID) error {
	if err := r.client.Del(ctx, cacheKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(cartID domain.CartID) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func fromDomain(cart *domain.ShoppingCart) cachedCart {
	snap := cart.Snapshot()
	items := make([]cachedItem, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, cachedItem{ProductID: it.ProductID().String(), Quantity: it.Quantity().Int()})
	}
	return cachedCart{
		ID:         snap.ID.String(),
		CustomerID: snap.CustomerID.String(),
		Status:     snap.Status.String(),
		Items:      items,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
	}
}

func (c cachedCart) toDomain() (*domain.ShoppingCart, error) {
	items := make([]domain.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		productID, err := domain.ProductIDFromString(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("cached cart %s: %w", c.ID, err)
		}
		q, err := domain.NewQuantity(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("cached cart %s: %w", c.ID, err)
		}
		items = append(items, domain.NewCartItem(productID, q))
	}
	return domain.ReconstituteCart(domain.CartSnapshot{
		ID:         domain.CartID(c.ID),
		CustomerID: domain.CustomerID(c.CustomerID),
		Status:     domain.CartStatus(c.Status),
		Items:      items,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	})
}
