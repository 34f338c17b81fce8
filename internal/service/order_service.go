package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/repository"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by *bus.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

type CartStore interface {
	LoadCart(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error)
	MarkConverted(ctx context.Context, cartID domain.CartID) error
}

type CheckoutRequest struct {
	CartID          domain.CartID
	ShippingAddress domain.ShippingAddress
}

type OrderService struct {
	orders  repository.OrderRepository
	carts   CartStore
	pricing domain.PricingGateway
	events  EventPublisher
	logger  *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	carts CartStore,
	pricing domain.PricingGateway,
	events EventPublisher,
	l *zap.Logger,
) *OrderService {
	if l == nil {
		l = zap.NewNop()
	}
	return &OrderService{
		orders:  orders,
		carts:   carts,
		pricing: pricing,
		events:  events,
		logger:  l.Named("order_service"),
	}
}

// Checkout turns a cart into an order. Checking out the same cart again returns
// the order placed the first time. The order is stored before OrderPlaced is
// published.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	existing, found, err := s.orders.FindByCartID(ctx, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing order: %w", err)
	}
	if found {
		logger.Info(ctx, s.logger, "duplicate checkout, returning existing order",
			zap.String("cart_id", req.CartID.String()),
			zap.String("order_id", existing.ID().String()))
		return existing, nil
	}

	cart, err := s.carts.LoadCart(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if cart.IsConverted() {
		return nil, fmt.Errorf("%w: %s", domain.ErrCartConverted, req.CartID)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items, subtotal, err := s.priceItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	globalDiscount, err := s.pricing.OrderDiscount(ctx, cart.CustomerID(), subtotal)
	if err != nil {
		return nil, fmt.Errorf("order discount: %w", err)
	}

	order, event, err := domain.PlaceOrder(domain.PlaceOrderParams{
		CartID:          cart.ID(),
		CustomerID:      cart.CustomerID(),
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		GlobalDiscount:  globalDiscount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderConflict) {
			// a concurrent checkout of the same cart won
			winner, found, errFind := s.orders.FindByCartID(ctx, req.CartID)
			if errFind == nil && found {
				return winner, nil
			}
		}
		logger.Error(ctx, s.logger, "failed to save order", zap.String("order_id", order.ID().String()), zap.Error(err))
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.events.Publish(ctx, domain.OrderPlacedTopic, event)

	if err := s.carts.MarkConverted(ctx, cart.ID()); err != nil {
		logger.Warn(ctx, s.logger, "failed to mark cart converted",
			zap.String("cart_id", cart.ID().String()), zap.Error(err))
	}

	logger.Info(ctx, s.logger, "order placed",
		zap.String("order_id", order.ID().String()),
		zap.String("cart_id", cart.ID().String()),
		zap.String("total", order.TotalAmount().String()))
	return order, nil
}

func (s *OrderService) priceItems(ctx context.Context, cart *domain.ShoppingCart) ([]domain.OrderItem, domain.Money, error) {
	var (
		items    []domain.OrderItem
		subtotal domain.Money
	)
	for i, line := range cart.Items() {
		price, err := s.pricing.ProductPrice(ctx, line.ProductID())
		if err != nil {
			return nil, domain.Money{}, fmt.Errorf("price %s: %w", line.ProductID(), err)
		}
		discount, err := s.pricing.ProductDiscount(ctx, line.ProductID(), cart.CustomerID(), line.Quantity())
		if err != nil {
			return nil, domain.Money{}, fmt.Errorf("discount %s: %w", line.ProductID(), err)
		}
		item, err := domain.NewOrderItem(line.ProductID(), line.Quantity(), price, discount)
		if err != nil {
			return nil, domain.Money{}, err
		}
		items = append(items, item)

		if i == 0 {
			subtotal = item.Subtotal()
			continue
		}
		if subtotal, err = subtotal.Add(item.Subtotal()); err != nil {
			return nil, domain.Money{}, fmt.Errorf("item %s: %w", line.ProductID(), err)
		}
	}
	return items, subtotal, nil
}

// ConfirmPayment marks the order paid. Repeating the call with the same payment
// id returns the order unchanged; a different payment id fails with
// domain.ErrOrderAlreadyPaid.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID domain.OrderID, paymentID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if current, paid := order.PaymentID(); paid && current == paymentID {
		logger.Info(ctx, s.logger, "payment already recorded",
			zap.String("order_id", orderID.String()), zap.String("payment_id", paymentID))
		return order, nil
	}

	if err := order.MarkAsPaid(paymentID); err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, order); err != nil {
		logger.Error(ctx, s.logger, "failed to save paid order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	logger.Info(ctx, s.logger, "order paid",
		zap.String("order_id", orderID.String()), zap.String("payment_id", paymentID))
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID domain.OrderID) (*domain.Order, error) {
	order, found, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}
