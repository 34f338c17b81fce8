package domain

import "fmt"

// Quantity is a positive item count.
type Quantity struct {
	value int
}

func NewQuantity(value int) (Quantity, error) {
	if value <= 0 {
		return Quantity{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, value)
	}
	return Quantity{value: value}, nil
}

func (q Quantity) Int() int {
	return q.value
}

func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

func (q Quantity) Equals(other Quantity) bool {
	return q.value == other.value
}
