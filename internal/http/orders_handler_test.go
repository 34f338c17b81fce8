package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/repository"
	"github.com/fjod/go_cart/orders/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutBody = `{"shipping_address":{"street":"123 Main St","city":"Springfield",` +
	`"state_or_province":"IL","postal_code":"62701","country":"USA","delivery_instructions":"Leave at door"}}`

func testOrder(t *testing.T) *domain.Order {
	t.Helper()
	q, err := domain.NewQuantity(3)
	require.NoError(t, err)
	price, err := domain.ParseMoney("20", "USD")
	require.NoError(t, err)
	discount, err := domain.ParseMoney("5", "USD")
	require.NoError(t, err)
	item, err := domain.NewOrderItem("SKU-C", q, price, discount)
	require.NoError(t, err)
	addr, err := domain.NewShippingAddress(domain.AddressParams{
		Street:          "123 Main St",
		City:            "Springfield",
		StateOrProvince: "IL",
		PostalCode:      "62701",
		Country:         "USA",
	})
	require.NoError(t, err)
	global, err := domain.ParseMoney("10", "USD")
	require.NoError(t, err)

	order, _, err := domain.PlaceOrder(domain.PlaceOrderParams{
		CartID:          domain.NewCartID(),
		CustomerID:      "customer-123",
		Items:           []domain.OrderItem{item},
		ShippingAddress: addr,
		GlobalDiscount:  global,
	})
	require.NoError(t, err)
	return order
}

func TestCheckout_Success(t *testing.T) {
	order := testOrder(t)
	mock := &OrderServiceMock{order: order}
	handler := NewOrdersHandler(mock, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(checkoutBody)),
		map[string]string{"cart_id": order.CartID().String()})

	handler.Checkout(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, order.CartID(), mock.gotCheckout.CartID)
	assert.Equal(t, "Leave at door", mock.gotCheckout.ShippingAddress.DeliveryInstructions)

	var response OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, order.ID().String(), response.ID)
	assert.Equal(t, "awaiting-payment", response.Status)
	assert.Equal(t, "USD", response.Currency)
	assert.Equal(t, "55.00", response.Subtotal)
	assert.Equal(t, "10.00", response.GlobalDiscount)
	assert.Equal(t, "45.00", response.TotalAmount)
	require.Len(t, response.Items, 1)
	assert.Equal(t, OrderItemDTO{
		ProductID:    "SKU-C",
		Quantity:     3,
		UnitPrice:    "20.00",
		ItemDiscount: "5.00",
		Subtotal:     "55.00",
	}, response.Items[0])
	assert.Empty(t, response.PaymentID)
}

func TestCheckout_InvalidAddress(t *testing.T) {
	mock := &OrderServiceMock{}
	handler := NewOrdersHandler(mock, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(`{"shipping_address":{"street":"x"}}`)),
		map[string]string{"cart_id": domain.NewCartID().String()})

	handler.Checkout(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_shipping_address", decodeError(t, recorder).Code)
	assert.Empty(t, mock.gotCheckout.CartID)
}

func TestCheckout_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "empty cart", err: service.ErrEmptyCart, status: http.StatusUnprocessableEntity, code: "empty_cart"},
		{name: "converted cart", err: fmt.Errorf("%w: c", domain.ErrCartConverted), status: http.StatusConflict, code: "conflict"},
		{name: "cart not found", err: service.ErrCartNotFound, status: http.StatusNotFound, code: "not_found"},
		{name: "conflict", err: repository.ErrOrderConflict, status: http.StatusConflict, code: "conflict"},
		{name: "currency mismatch", err: domain.ErrCurrencyMismatch, status: http.StatusBadRequest, code: "invalid_argument"},
		{name: "corrupt row", err: fmt.Errorf("%w: order o: %w", repository.ErrCorruptAggregate, domain.ErrInvalidOrderState), status: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewOrdersHandler(&OrderServiceMock{err: tt.err}, 5*time.Second, nil)
			recorder := httptest.NewRecorder()
			request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(checkoutBody)),
				map[string]string{"cart_id": domain.NewCartID().String()})

			handler.Checkout(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.code, decodeError(t, recorder).Code)
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{err: service.ErrOrderNotFound}, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("GET", "/", nil), map[string]string{"order_id": domain.NewOrderID().String()})

	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{}, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("GET", "/", nil), map[string]string{"order_id": "42"})

	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_order_id", decodeError(t, recorder).Code)
}

func TestConfirmPayment_Success(t *testing.T) {
	order := testOrder(t)
	mock := &OrderServiceMock{order: order}
	handler := NewOrdersHandler(mock, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(`{"payment_id":"payment-123"}`)),
		map[string]string{"order_id": order.ID().String()})

	handler.ConfirmPayment(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "paid", response.Status)
	assert.Equal(t, "payment-123", response.PaymentID)
}

func TestConfirmPayment_AlreadyPaid(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.MarkAsPaid("payment-123"))
	handler := NewOrdersHandler(&OrderServiceMock{order: order}, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(`{"payment_id":"payment-999"}`)),
		map[string]string{"order_id": order.ID().String()})

	handler.ConfirmPayment(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestConfirmPayment_BlankPaymentID(t *testing.T) {
	handler := NewOrdersHandler(&OrderServiceMock{order: testOrder(t)}, 5*time.Second, nil)
	recorder := httptest.NewRecorder()
	request := withURLParams(httptest.NewRequest("POST", "/", strings.NewReader(`{"payment_id":""}`)),
		map[string]string{"order_id": domain.NewOrderID().String()})

	handler.ConfirmPayment(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
