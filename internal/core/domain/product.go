package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type (
	Product struct {
		ID          int64
		Title       string
		Price       decimal.Decimal
		Category    string
		Image       string
		Description string
		Rating      ProductRating
	}

	ProductRating struct {
		Rate  float64
		Count int
	}
)

// Categories returns the distinct categories of ps in order of first appearance.
func Categories(ps []Product) []string {
	seen := make(map[string]struct{}, len(ps))
	categories := make([]string, 0)
	for _, p := range ps {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}
