package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/internal/pricing"
	"github.com/fjod/go_cart/orders/internal/repository"
	"github.com/fjod/go_cart/orders/internal/service"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError maps service and domain errors to HTTP statuses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, l *zap.Logger, err error) {
	var (
		httpStatus int
		code       string
	)

	switch {
	case errors.Is(err, repository.ErrCorruptAggregate):
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, pricing.ErrProductNotFound),
		errors.Is(err, domain.ErrCartItemNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrOrderAlreadyPaid),
		errors.Is(err, domain.ErrCartConverted),
		errors.Is(err, repository.ErrOrderConflict):
		httpStatus = http.StatusConflict
		code = "conflict"
	case errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusUnprocessableEntity
		code = "empty_cart"
	case domain.IsValidation(err):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	if httpStatus == http.StatusInternalServerError {
		logger.Error(ctx, l, "request failed", zap.String("request_id", getRequestID(ctx)), zap.Error(err))
		respondError(w, httpStatus, code, "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
