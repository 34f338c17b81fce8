package domain

import (
	"fmt"
	"time"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

func (s CartStatus) String() string {
	return string(s)
}

type CartItem struct {
	productID ProductID
	quantity  Quantity
}

func NewCartItem(productID ProductID, quantity Quantity) CartItem {
	return CartItem{productID: productID, quantity: quantity}
}

func (i CartItem) ProductID() ProductID {
	return i.productID
}

func (i CartItem) Quantity() Quantity {
	return i.quantity
}

// ShoppingCart collects items for a customer until it is checked out.
type ShoppingCart struct {
	id         CartID
	customerID CustomerID
	status     CartStatus
	items      []CartItem
	createdAt  time.Time
	updatedAt  time.Time
}

func NewShoppingCart(customerID CustomerID) *ShoppingCart {
	now := time.Now().UTC()
	return &ShoppingCart{
		id:         NewCartID(),
		customerID: customerID,
		status:     CartStatusActive,
		createdAt:  now,
		updatedAt:  now,
	}
}

type CartSnapshot struct {
	ID         CartID
	CustomerID CustomerID
	Status     CartStatus
	Items      []CartItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func ReconstituteCart(s CartSnapshot) (*ShoppingCart, error) {
	if s.Status != CartStatusActive && s.Status != CartStatusConverted {
		return nil, fmt.Errorf("%w: unknown cart status %q", ErrInvalidOrderState, s.Status)
	}
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	return &ShoppingCart{
		id:         s.ID,
		customerID: s.CustomerID,
		status:     s.Status,
		items:      items,
		createdAt:  s.CreatedAt,
		updatedAt:  s.UpdatedAt,
	}, nil
}

func (c *ShoppingCart) Snapshot() CartSnapshot {
	return CartSnapshot{
		ID:         c.id,
		CustomerID: c.customerID,
		Status:     c.status,
		Items:      c.Items(),
		CreatedAt:  c.createdAt,
		UpdatedAt:  c.updatedAt,
	}
}

func (c *ShoppingCart) ID() CartID {
	return c.id
}

func (c *ShoppingCart) CustomerID() CustomerID {
	return c.customerID
}

func (c *ShoppingCart) Status() CartStatus {
	return c.status
}

func (c *ShoppingCart) Items() []CartItem {
	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *ShoppingCart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *ShoppingCart) IsConverted() bool {
	return c.status == CartStatusConverted
}

// AddItem merges quantities when the product is already in the cart.
func (c *ShoppingCart) AddItem(productID ProductID, quantity Quantity) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].productID == productID {
			c.items[i].quantity = c.items[i].quantity.Add(quantity)
			c.touch()
			return nil
		}
	}
	c.items = append(c.items, NewCartItem(productID, quantity))
	c.touch()
	return nil
}

func (c *ShoppingCart) UpdateItemQuantity(productID ProductID, quantity Quantity) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].productID == productID {
			c.items[i].quantity = quantity
			c.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
}

func (c *ShoppingCart) RemoveItem(productID ProductID) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].productID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
}

func (c *ShoppingCart) MarkAsConverted() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.status = CartStatusConverted
	c.touch()
	return nil
}

func (c *ShoppingCart) ensureActive() error {
	if c.status == CartStatusConverted {
		return fmt.Errorf("%w: %s", ErrCartConverted, c.id)
	}
	return nil
}

func (c *ShoppingCart) touch() {
	c.updatedAt = time.Now().UTC()
}
