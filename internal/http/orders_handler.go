package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderAPI is satisfied by *service.OrderService.
type OrderAPI interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID domain.OrderID) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID domain.OrderID, paymentID string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderAPI
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(orders OrderAPI, timeout time.Duration, l *zap.Logger) *OrdersHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		logger:  l.Named("orders_handler"),
	}
}

type AddressDTO struct {
	Street               string `json:"street"`
	AddressLine2         string `json:"address_line2,omitempty"`
	City                 string `json:"city"`
	StateOrProvince      string `json:"state_or_province"`
	PostalCode           string `json:"postal_code"`
	Country              string `json:"country"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`
}

type CheckoutRequestDTO struct {
	ShippingAddress AddressDTO `json:"shipping_address"`
}

type ConfirmPaymentRequestDTO struct {
	PaymentID string `json:"payment_id"`
}

type OrderItemDTO struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	ItemDiscount string `json:"item_discount"`
	Subtotal     string `json:"subtotal"`
}

// Amounts are decimal strings with two places, all in Currency.
type OrderResponseDTO struct {
	ID              string         `json:"id"`
	CartID          string         `json:"cart_id"`
	CustomerID      string         `json:"customer_id"`
	Status          string         `json:"status"`
	PaymentID       string         `json:"payment_id,omitempty"`
	Currency        string         `json:"currency"`
	Items           []OrderItemDTO `json:"items"`
	Subtotal        string         `json:"subtotal"`
	GlobalDiscount  string         `json:"global_discount"`
	TotalAmount     string         `json:"total_amount"`
	ShippingAddress AddressDTO     `json:"shipping_address"`
}

func amount(m domain.Money) string {
	return m.Amount().StringFixed(2)
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, OrderItemDTO{
			ProductID:    item.ProductID().String(),
			Quantity:     item.Quantity().Int(),
			UnitPrice:    amount(item.UnitPrice()),
			ItemDiscount: amount(item.ItemDiscount()),
			Subtotal:     amount(item.Subtotal()),
		})
	}

	paymentID, _ := o.PaymentID()
	addr := o.ShippingAddress()

	return OrderResponseDTO{
		ID:             o.ID().String(),
		CartID:         o.CartID().String(),
		CustomerID:     o.CustomerID().String(),
		Status:         o.Status().String(),
		PaymentID:      paymentID,
		Currency:       o.Currency(),
		Items:          items,
		Subtotal:       amount(o.Subtotal()),
		GlobalDiscount: amount(o.GlobalDiscount()),
		TotalAmount:    amount(o.TotalAmount()),
		ShippingAddress: AddressDTO{
			Street:               addr.Street,
			AddressLine2:         addr.AddressLine2,
			City:                 addr.City,
			StateOrProvince:      addr.StateOrProvince,
			PostalCode:           addr.PostalCode,
			Country:              addr.Country,
			DeliveryInstructions: addr.DeliveryInstructions,
		},
	}
}

// POST /api/v1/carts/{cart_id}/checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	addr, err := domain.NewShippingAddress(domain.AddressParams(req.ShippingAddress))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_shipping_address", err.Error())
		return
	}

	order, err := h.orders.Checkout(ctx, service.CheckoutRequest{CartID: cartID, ShippingAddress: addr})
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// POST /api/v1/orders/{order_id}/payment
func (h *OrdersHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.ConfirmPayment(ctx, orderID, req.PaymentID)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (domain.OrderID, bool) {
	orderID, err := domain.OrderIDFromString(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", err.Error())
		return "", false
	}
	return orderID, true
}
