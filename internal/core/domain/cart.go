package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// A CartLine is one product's accumulated quantity within the cart.
type CartLine struct {
	Product
	Quantity int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// A Cart is an immutable list of lines with at most one line per product id.
//
// Every mutating method returns a new Cart and reports whether anything changed,
// the receiver is never modified.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from lines, merging lines that share a product id
// and dropping lines with a quantity below 1.
func NewCart(lines ...CartLine) Cart {
	var c Cart
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := c.index(l.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c Cart) Lines() []CartLine {
	return slices.Clone(c.lines)
}

func (c Cart) Len() int {
	return len(c.lines)
}

func (c Cart) Line(productID int64) (CartLine, bool) {
	i := c.index(productID)
	if i < 0 {
		return CartLine{}, false
	}
	return c.lines[i], true
}

func (c Cart) Add(p Product) (Cart, bool) {
	lines := slices.Clone(c.lines)
	if i := c.index(p.ID); i >= 0 {
		lines[i].Quantity++
		return Cart{lines}, true
	}
	lines = append(lines, CartLine{Product: p, Quantity: 1})
	return Cart{lines}, true
}

func (c Cart) Remove(productID int64) (Cart, bool) {
	i := c.index(productID)
	if i < 0 {
		return c, false
	}
	return Cart{slices.Delete(slices.Clone(c.lines), i, i+1)}, true
}

// UpdateQuantity sets the quantity of an existing line.
//
// Quantities below 1 are ignored, the line keeps its last valid quantity.
// Use [Cart.Remove] to drop a line.
func (c Cart) UpdateQuantity(productID int64, quantity int) (Cart, bool) {
	if quantity < 1 {
		return c, false
	}
	i := c.index(productID)
	if i < 0 || c.lines[i].Quantity == quantity {
		return c, false
	}
	lines := slices.Clone(c.lines)
	lines[i].Quantity = quantity
	return Cart{lines}, true
}

func (c Cart) Clear() (Cart, bool) {
	return Cart{}, len(c.lines) != 0
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) ItemsCount() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) index(productID int64) int {
	return slices.IndexFunc(c.lines, func(l CartLine) bool {
		return l.ID == productID
	})
}

// FormatMoney renders d with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
