package cart

import (
	"errors"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrInsufficientStock is returned when a quantity change would exceed the
// stock snapshot supplied for the product. The cart is left unchanged.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrLineNotFound indicates the referenced product is not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Product is the inventory snapshot a line is created from. AvailableStock is
// the figure at lookup time; the cart re-checks it on every mutation but does
// not observe concurrent external changes until the next lookup. The
// authoritative check happens again inside the order collaborator at
// finalize time.
type Product struct {
	Ref            string
	SKU            string
	Name           string
	UnitPrice      money.Money
	AvailableStock int
}

// Line is one cart entry. There is never more than one line per product ref;
// a zero or negative quantity is represented by removing the line.
type Line struct {
	Product  Product
	Qty      int
	Discount pricing.Discount
}

// Subtotal returns the rounded line subtotal for the current state.
func (l Line) Subtotal() money.Money {
	return l.pricingLine().Subtotal()
}

func (l Line) pricingLine() pricing.Line {
	return pricing.Line{Qty: l.Qty, UnitPrice: l.Product.UnitPrice, Discount: l.Discount}
}

// Cart is an ordered collection of lines keyed by product ref. Not safe for
// concurrent use; the owning sale serialises access.
type Cart struct {
	lines []*Line
}

// Lines returns the lines in insertion order.
func (c *Cart) Lines() []*Line {
	return c.lines
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Find returns the line for the product ref, or nil.
func (c *Cart) Find(productRef string) *Line {
	for _, l := range c.lines {
		if l.Product.Ref == productRef {
			return l
		}
	}
	return nil
}

// AddOrIncrement adds the product with the requested quantity, or increments
// the existing line when the product is already present. The resulting
// quantity is validated against the product's stock snapshot before anything
// is mutated.
func (c *Cart) AddOrIncrement(p Product, requestedQty int) (*Line, error) {
	if requestedQty <= 0 {
		requestedQty = 1
	}
	if existing := c.Find(p.Ref); existing != nil {
		newQty := existing.Qty + requestedQty
		if newQty > existing.Product.AvailableStock {
			return nil, fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, existing.Product.Name, existing.Product.AvailableStock)
		}
		existing.Qty = newQty
		return existing, nil
	}
	if requestedQty > p.AvailableStock {
		return nil, fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, p.Name, p.AvailableStock)
	}
	line := &Line{Product: p, Qty: requestedQty}
	c.lines = append(c.lines, line)
	return line, nil
}

// SetQuantity updates a line's quantity. A quantity of zero or less removes
// the line; a quantity above the stock snapshot fails and leaves the prior
// quantity in place.
func (c *Cart) SetQuantity(productRef string, qty int) error {
	line := c.Find(productRef)
	if line == nil {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.Remove(productRef)
		return nil
	}
	if qty > line.Product.AvailableStock {
		return fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, line.Product.Name, line.Product.AvailableStock)
	}
	line.Qty = qty
	return nil
}

// SetDiscount updates a line's discount. Negative values clamp to zero.
func (c *Cart) SetDiscount(productRef string, value money.Money, kind pricing.DiscountKind) error {
	line := c.Find(productRef)
	if line == nil {
		return ErrLineNotFound
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown discount kind %q", ErrInvalidInput, kind)
	}
	line.Discount = pricing.Discount{Value: money.ClampNonNegative(value), Kind: kind}
	return nil
}

// SetUnitPrice overrides a line's unit price. Negative values clamp to zero.
func (c *Cart) SetUnitPrice(productRef string, price money.Money) error {
	line := c.Find(productRef)
	if line == nil {
		return ErrLineNotFound
	}
	line.Product.UnitPrice = money.ClampNonNegative(price)
	return nil
}

// Remove deletes the line for the product ref. Removing an absent line is a
// no-op.
func (c *Cart) Remove(productRef string) {
	for i, l := range c.lines {
		if l.Product.Ref == productRef {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear discards all lines.
func (c *Cart) Clear() {
	c.lines = nil
}

// PricingLines projects the cart into the totals engine's input.
func (c *Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.pricingLine())
	}
	return out
}
