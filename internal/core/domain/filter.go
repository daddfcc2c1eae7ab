package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price")

// A PriceBound is an optional price limit, unset means unbounded.
type PriceBound = decimal.NullDecimal

// ParsePriceBound turns raw user input into a bound.
//
// Blank input yields an unset bound. Non-numeric or negative input
// is rejected with [ErrInvalidPrice].
func ParsePriceBound(raw string) (PriceBound, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PriceBound{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return PriceBound{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if d.IsNegative() {
		return PriceBound{}, fmt.Errorf("%w: %q is negative", ErrInvalidPrice, raw)
	}
	return decimal.NewNullDecimal(d), nil
}

func FormatPriceBound(b PriceBound) string {
	if !b.Valid {
		return ""
	}
	return b.Decimal.String()
}

type FilterCriteria struct {
	Category string
	MinPrice PriceBound
	MaxPrice PriceBound
}

func (f FilterCriteria) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	return true
}

// Apply keeps the products matching f, preserving their order.
func (f FilterCriteria) Apply(ps []Product) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
