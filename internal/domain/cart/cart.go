package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("cart: not found")
	ErrEmpty                = errors.New("cart: no line items")
	ErrInvalidQuantity      = errors.New("cart: quantity must be greater than zero")
	ErrQuantityExceedsStock = errors.New("cart: quantity exceeds available stock")
	ErrItemNotFound         = errors.New("cart: product not in cart")
)

// Kind discriminates the full shopping cart from the single-item
// quick-buy cart. The value travels through the gateway return URL
// as the FLAG query parameter.
type Kind string

const (
	KindShop Kind = "SHOP"
	KindFast Kind = "FAST"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindShop:
		return KindShop, true
	case KindFast:
		return KindFast, true
	}
	return "", false
}

type LineItem struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
	Photo     string
}

// Cart holds the line items a user intends to buy. Subtotals are
// maintained on every mutation so that Subtotal == UnitPrice * Quantity
// always holds when the cart is read for checkout.
type Cart struct {
	UserID    string
	Kind      Kind
	Items     []LineItem
	UpdatedAt time.Time
}

func New(userID string, kind Kind) *Cart {
	return &Cart{
		UserID:    userID,
		Kind:      kind,
		Items:     []LineItem{},
		UpdatedAt: time.Now().UTC(),
	}
}

// AddItem merges the quantity into an existing line for the same product
// or appends a new line. liveStock is the product's current stock; the
// resulting quantity may never exceed it.
func (c *Cart) AddItem(item LineItem, liveStock int) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID != item.ProductID {
			continue
		}
		merged := c.Items[i].Quantity + item.Quantity
		if merged > liveStock {
			return ErrQuantityExceedsStock
		}
		c.Items[i].Quantity = merged
		c.Items[i].Subtotal = c.Items[i].UnitPrice * int64(merged)
		c.touch()
		return nil
	}

	if item.Quantity > liveStock {
		return ErrQuantityExceedsStock
	}
	item.Subtotal = item.UnitPrice * int64(item.Quantity)
	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

func (c *Cart) UpdateQuantity(productID string, quantity, liveStock int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > liveStock {
		return ErrQuantityExceedsStock
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		c.Items[i].Quantity = quantity
		c.Items[i].Subtotal = c.Items[i].UnitPrice * int64(quantity)
		c.touch()
		return nil
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveItem(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.touch()
		return nil
	}
	return ErrItemNotFound
}

func (c *Cart) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Subtotal
	}
	return total
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ClampedLine records a downward quantity correction applied during
// cart-stock reconciliation.
type ClampedLine struct {
	ProductID string
	From      int
	To        int
}

// Clamp lowers each line's quantity to the live stock snapshot, never
// raising it, and recomputes the subtotal for clamped lines. It returns
// the corrections that were applied; callers persist the cart only when
// the returned slice is non-empty.
func (c *Cart) Clamp(liveStock map[string]int) []ClampedLine {
	var clamped []ClampedLine
	for i := range c.Items {
		stock, ok := liveStock[c.Items[i].ProductID]
		if !ok {
			stock = 0
		}
		if c.Items[i].Quantity <= stock {
			continue
		}
		clamped = append(clamped, ClampedLine{
			ProductID: c.Items[i].ProductID,
			From:      c.Items[i].Quantity,
			To:        stock,
		})
		c.Items[i].Quantity = stock
		c.Items[i].Subtotal = c.Items[i].UnitPrice * int64(stock)
	}
	if len(clamped) > 0 {
		c.touch()
	}
	return clamped
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
