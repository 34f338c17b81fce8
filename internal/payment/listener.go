package payment

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/orders/internal/bus"
	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"go.uber.org/zap"
)

type Subscriber interface {
	Subscribe(topic string, h bus.Handler)
}

// PaymentConfirmer is satisfied by *service.OrderService.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID domain.OrderID, paymentID string) (*domain.Order, error)
}

// Listener charges every placed order and records the payment on success.
// Declined charges are logged and left awaiting payment.
type Listener struct {
	charger Charger
	orders  PaymentConfirmer
	logger  *zap.Logger
}

func NewListener(charger Charger, orders PaymentConfirmer, l *zap.Logger) *Listener {
	if l == nil {
		l = zap.NewNop()
	}
	return &Listener{
		charger: charger,
		orders:  orders,
		logger:  l.Named("payment_listener"),
	}
}

func (l *Listener) Register(s Subscriber) {
	s.Subscribe(domain.OrderPlacedTopic, l.Handle)
}

func (l *Listener) Handle(ctx context.Context, env bus.Envelope) error {
	event, ok := env.Payload.(domain.OrderPlaced)
	if !ok {
		return fmt.Errorf("unexpected payload %T on %s", env.Payload, env.Topic)
	}

	result, err := l.charger.Charge(ctx, event.OrderID, event.TotalAmount)
	if err != nil {
		return fmt.Errorf("charge order %s: %w", event.OrderID, err)
	}

	if !result.Succeeded() {
		logger.Warn(ctx, l.logger, "payment declined",
			zap.String("order_id", event.OrderID.String()),
			zap.String("amount", event.TotalAmount.String()),
			zap.Stringer("refusal", result.Refusal),
			zap.String("other_reason", result.OtherReason))
		return nil
	}

	if _, err := l.orders.ConfirmPayment(ctx, event.OrderID, result.TransactionID); err != nil {
		return fmt.Errorf("confirm payment for order %s: %w", event.OrderID, err)
	}

	logger.Info(ctx, l.logger, "payment captured",
		zap.String("order_id", event.OrderID.String()),
		zap.String("transaction_id", result.TransactionID))
	return nil
}
