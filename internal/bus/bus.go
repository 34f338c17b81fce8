package bus

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fjod/go_cart/orders/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Envelope wraps every published payload.
type Envelope struct {
	MessageID string
	Topic     string
	Timestamp time.Time
	Payload   any
}

// Handler reacts to one envelope. A returned error is logged by the bus and
// goes nowhere else.
type Handler func(ctx context.Context, env Envelope) error

// Bus is an in-process topic broker with at-most-once, best-effort delivery.
// Publish hands the envelope to every handler registered at that moment, each in
// its own goroutine, and returns without waiting. Messages for a topic with no
// handlers are dropped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	// pending counts deliveries not yet returned; Wait and Publish may overlap.
	pendingMu sync.Mutex
	drained   *sync.Cond
	pending   int

	logger  *zap.Logger
	metrics *metrics
}

type Option func(*Bus)

func New(l *zap.Logger, opts ...Option) *Bus {
	if l == nil {
		l = zap.NewNop()
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   l.Named("bus"),
	}
	b.drained = sync.NewCond(&b.pendingMu)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Publish never fails and never blocks on handlers. Handlers get a context that
// keeps the caller's values but not its cancellation.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	env := Envelope{
		MessageID: uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Warn(ctx, b.logger, "no subscribers, message dropped",
			zap.String("topic", topic),
			zap.String("message_id", env.MessageID))
		b.metrics.dropped(topic)
		return
	}

	b.metrics.published(topic)
	detached := context.WithoutCancel(ctx)
	b.pendingMu.Lock()
	b.pending += len(handlers)
	b.pendingMu.Unlock()
	for _, h := range handlers {
		go b.deliver(detached, h, env)
	}
}

// Wait blocks until no delivery is in flight. It is safe to call while other
// goroutines publish; deliveries started during the wait are waited for too.
func (b *Bus) Wait() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for b.pending > 0 {
		b.drained.Wait()
	}
}

func (b *Bus) done() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pending--
	if b.pending == 0 {
		b.drained.Broadcast()
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, env Envelope) {
	defer b.done()
	defer func() {
		if r := recover(); r != nil {
			b.fail(ctx, env, fmt.Errorf("handler panic: %v", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := h(ctx, env); err != nil {
		b.fail(ctx, env, err)
	}
}

func (b *Bus) fail(ctx context.Context, env Envelope, err error, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("topic", env.Topic),
		zap.String("message_id", env.MessageID),
		zap.Error(err),
	}, extra...)
	logger.Error(ctx, b.logger, "event handler failed", fields...)
	b.metrics.failed(env.Topic)
}
