package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQuantity = 99

// CartAPI is satisfied by *service.CartService.
type CartAPI interface {
	CreateCart(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error)
	GetCart(ctx context.Context, cartID domain.CartID) (*domain.ShoppingCart, error)
	AddItem(ctx context.Context, cartID domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error)
	UpdateQuantity(ctx context.Context, cartID domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error)
	RemoveItem(ctx context.Context, cartID domain.CartID, productID domain.ProductID) (*domain.ShoppingCart, error)
	DeleteCart(ctx context.Context, cartID domain.CartID) error
}

type CartHandler struct {
	carts   CartAPI
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts CartAPI, timeout time.Duration, l *zap.Logger) *CartHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  l.Named("cart_handler"),
	}
}

type CreateCartRequestDTO struct {
	CustomerID string `json:"customer_id"`
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartResponseDTO struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	Status     string        `json:"status"`
	Items      []CartItemDTO `json:"items"`
}

func convertCart(c *domain.ShoppingCart) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(c.Items()))
	for _, item := range c.Items() {
		items = append(items, CartItemDTO{
			ProductID: item.ProductID().String(),
			Quantity:  item.Quantity().Int(),
		})
	}
	return CartResponseDTO{
		ID:         c.ID().String(),
		CustomerID: c.CustomerID().String(),
		Status:     c.Status().String(),
		Items:      items,
	}
}

// POST /api/v1/carts
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	customerID, err := domain.CustomerIDFromString(req.CustomerID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_customer_id", err.Error())
		return
	}

	cart, err := h.carts.CreateCart(ctx, customerID)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// GET /api/v1/carts/{cart_id}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, cartID)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/carts/{cart_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	productID, err := domain.ProductIDFromString(req.ProductID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", err.Error())
		return
	}
	quantity, ok := quantityValue(w, req.Quantity)
	if !ok {
		return
	}

	cart, err := h.carts.AddItem(ctx, cartID, productID, quantity)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// PUT /api/v1/carts/{cart_id}/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	quantity, ok := quantityValue(w, req.Quantity)
	if !ok {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/carts/{cart_id}/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, cartID, productID)
	if err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/carts/{cart_id}
func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	if err := h.carts.DeleteCart(ctx, cartID); err != nil {
		handleServiceError(ctx, w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func cartIDParam(w http.ResponseWriter, r *http.Request) (domain.CartID, bool) {
	cartID, err := domain.CartIDFromString(chi.URLParam(r, "cart_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", err.Error())
		return "", false
	}
	return cartID, true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (domain.ProductID, bool) {
	productID, err := domain.ProductIDFromString(chi.URLParam(r, "product_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", err.Error())
		return "", false
	}
	return productID, true
}

func quantityValue(w http.ResponseWriter, v int) (domain.Quantity, bool) {
	if v > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return domain.Quantity{}, false
	}
	quantity, err := domain.NewQuantity(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return domain.Quantity{}, false
	}
	return quantity, true
}
