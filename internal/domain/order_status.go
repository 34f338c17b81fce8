package domain

import (
	"fmt"
	"strings"
)

const (
	statusAwaitingPayment = "awaiting-payment"
	statusPaid            = "paid"
)

var validStatuses = []string{statusAwaitingPayment, statusPaid}

// OrderStatus is one of the closed set {awaiting-payment, paid}. The zero value is
// not a valid status; use AwaitingPayment, Paid or ParseOrderStatus.
type OrderStatus struct {
	value string
}

func AwaitingPayment() OrderStatus {
	return OrderStatus{value: statusAwaitingPayment}
}

func Paid() OrderStatus {
	return OrderStatus{value: statusPaid}
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, s := range validStatuses {
		if s == value {
			return OrderStatus{value: s}, nil
		}
	}
	return OrderStatus{}, fmt.Errorf("%w: %q. Must be one of [%s]",
		ErrInvalidOrderStatus, value, strings.Join(validStatuses, ","))
}

// ToPaid returns a paid status whatever the receiver is. Guarding the transition is
// the aggregate's job.
func (s OrderStatus) ToPaid() OrderStatus {
	return Paid()
}

func (s OrderStatus) IsPaid() bool {
	return s.value == statusPaid
}

func (s OrderStatus) IsAwaitingPayment() bool {
	return s.value == statusAwaitingPayment
}

func (s OrderStatus) Equals(other OrderStatus) bool {
	return s.value == other.value
}

func (s OrderStatus) String() string {
	return s.value
}
