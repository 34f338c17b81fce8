package domain

import "errors"

// Validation errors. Constructors wrap these with the offending value, so callers
// should match with errors.Is.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrInvalidMoney       = errors.New("invalid money")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrInvalidAddress     = errors.New("invalid shipping address")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidOrderState  = errors.New("inconsistent order state")
	ErrMissingPaymentID   = errors.New("payment id is required")
	ErrOrderAlreadyPaid   = errors.New("order is already paid")
	ErrCartConverted      = errors.New("cart has already been checked out")
	ErrCartItemNotFound   = errors.New("item not found in cart")
)

var validationErrors = []error{
	ErrInvalidIdentifier,
	ErrInvalidQuantity,
	ErrInvalidMoney,
	ErrCurrencyMismatch,
	ErrInvalidAddress,
	ErrInvalidOrderStatus,
	ErrEmptyOrder,
	ErrInvalidOrderState,
	ErrMissingPaymentID,
}

// IsValidation reports whether err is a construction-time validation failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
