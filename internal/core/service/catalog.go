package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
)

var _ port.CatalogReader = (*CatalogStore)(nil)

// A CatalogStore holds the product catalog fetched from the remote API.
//
// It is loading until the first [CatalogStore.Load] resolves,
// whatever its outcome.
type CatalogStore struct {
	fetcher port.CatalogFetcher

	mu         sync.RWMutex
	products   []domain.Product
	categories []string

	loading    atomic.Bool
	loaded     chan struct{}
	loadedOnce sync.Once
}

func NewCatalogStore(fetcher port.CatalogFetcher) *CatalogStore {
	s := &CatalogStore{
		fetcher: fetcher,
		loaded:  make(chan struct{}),
	}
	s.loading.Store(true)
	return s
}

// Load fetches the catalog once.
//
// On failure the error is logged and the previous product list is kept.
// A result arriving after ctx is done is discarded.
func (s *CatalogStore) Load(ctx context.Context) {
	const op = "CatalogStore.Load"
	log := slog.With("op", op)

	defer s.markLoaded()

	log.Info("fetching catalog...")
	ps, err := s.fetcher.FetchProducts(ctx)
	if err != nil {
		log.Error("failed to fetch products", "err", err)
		return
	}

	if err := ctx.Err(); err != nil {
		log.Warn("catalog discarded", "err", err)
		return
	}

	categories := domain.Categories(ps)

	s.mu.Lock()
	s.products = slices.Clone(ps)
	s.categories = categories
	s.mu.Unlock()

	log.Info(
		"catalog loaded",
		"nProducts", len(ps),
		"nCategories", len(categories),
	)
}

func (s *CatalogStore) markLoaded() {
	s.loading.Store(false)
	s.loadedOnce.Do(func() { close(s.loaded) })
}

// Loaded is closed when the first load attempt resolves.
func (s *CatalogStore) Loaded() <-chan struct{} {
	return s.loaded
}

func (s *CatalogStore) Loading() bool {
	return s.loading.Load()
}

func (s *CatalogStore) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

func (s *CatalogStore) Product(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.products, func(p domain.Product) bool {
		return p.ID == id
	})
	if i < 0 {
		return domain.Product{}, false
	}
	return s.products[i], true
}

func (s *CatalogStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}
