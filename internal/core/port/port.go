package port

import (
	"context"

	"github.com/niksmo/fakestore/internal/core/domain"
)

type CatalogFetcher interface {
	FetchProducts(context.Context) ([]domain.Product, error)
}

type CatalogReader interface {
	Products() []domain.Product
	Product(id int64) (domain.Product, bool)
	Categories() []string
	Loading() bool
}

// A CartObserver is notified after every change of a session cart.
//
// Implementations must not block, they run on the goroutine
// that mutated the cart. Updates of one cart arrive one at a time
// and never older than the last one delivered.
type CartObserver interface {
	OnCartUpdate(domain.CartUpdate)
}

type CartObserverFunc func(domain.CartUpdate)

func (fn CartObserverFunc) OnCartUpdate(u domain.CartUpdate) {
	fn(u)
}

// A FilterObserver is notified after every accepted filter edit.
type FilterObserver interface {
	OnFilterChange(domain.FilterChange)
}
