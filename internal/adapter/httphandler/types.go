package httphandler

import (
	"github.com/niksmo/fakestore/internal/core/domain"
)

type (
	ErrorResponse struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}

	Product struct {
		ID          int64         `json:"id"`
		Title       string        `json:"title"`
		Price       string        `json:"price"`
		Category    string        `json:"category"`
		Image       string        `json:"image"`
		Description string        `json:"description"`
		Rating      ProductRating `json:"rating"`
	}

	ProductRating struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	}

	Catalog struct {
		Loading    bool     `json:"loading"`
		Categories []string `json:"categories"`
		Count      int      `json:"count"`
	}

	Filter struct {
		Category string `json:"category"`
		MinPrice string `json:"min_price"`
		MaxPrice string `json:"max_price"`
	}

	Products struct {
		Loading  bool      `json:"loading"`
		Filter   Filter    `json:"filter"`
		Products []Product `json:"products"`
	}

	CartItem struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Price    string `json:"price"`
		Image    string `json:"image"`
		Quantity int    `json:"quantity"`
		Subtotal string `json:"subtotal"`
	}

	Cart struct {
		Items []CartItem `json:"items"`
		Count int        `json:"count"`
		Total string     `json:"total"`
	}

	AddItemRequest struct {
		ProductID int64 `json:"product_id"`
	}

	UpdateQuantityRequest struct {
		Quantity int `json:"quantity"`
	}
)

func toProducts(ps []domain.Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = Product{
			ID:          p.ID,
			Title:       p.Title,
			Price:       domain.FormatMoney(p.Price),
			Category:    p.Category,
			Image:       p.Image,
			Description: p.Description,
			Rating: ProductRating{
				Rate:  p.Rating.Rate,
				Count: p.Rating.Count,
			},
		}
	}
	return out
}

func toFilter(f domain.FilterCriteria) Filter {
	return Filter{
		Category: f.Category,
		MinPrice: domain.FormatPriceBound(f.MinPrice),
		MaxPrice: domain.FormatPriceBound(f.MaxPrice),
	}
}

func toCartItems(lines []domain.CartLine) []CartItem {
	items := make([]CartItem, len(lines))
	for i, l := range lines {
		items[i] = CartItem{
			ID:       l.ID,
			Title:    l.Title,
			Price:    domain.FormatMoney(l.Price),
			Image:    l.Image,
			Quantity: l.Quantity,
			Subtotal: domain.FormatMoney(l.Subtotal()),
		}
	}
	return items
}

func toCart(c domain.Cart) Cart {
	return Cart{
		Items: toCartItems(c.Lines()),
		Count: c.ItemsCount(),
		Total: domain.FormatMoney(c.Total()),
	}
}

func cartUpdateToCart(u domain.CartUpdate) Cart {
	return Cart{
		Items: toCartItems(u.Items),
		Count: u.Count,
		Total: u.Total,
	}
}
