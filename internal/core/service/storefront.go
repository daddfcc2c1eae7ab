package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
)

type cartSubscriber struct {
	id  int
	obs port.CartObserver
}

// A Storefront owns the cart, filter criteria and cart panel state
// of one session.
//
// Every mutation swaps in a new immutable snapshot under the lock and
// stamps it with a sequence number. Observers are notified after the lock
// is released, one notification at a time, and a snapshot older than the
// last one delivered is dropped, so observers always end on the latest state.
// Observers may read the storefront but must not mutate it.
type Storefront struct {
	id      string
	catalog port.CatalogReader

	mu           sync.Mutex
	cart         domain.Cart
	criteria     domain.FilterCriteria
	panelVisible bool
	cartSubs     []cartSubscriber
	filterObs    []port.FilterObserver
	nextSubID    int
	cartSeq      uint64
	filterSeq    uint64

	notifyMu       sync.Mutex
	cartNotified   uint64
	filterNotified uint64
}

func NewStorefront(
	id string,
	catalog port.CatalogReader,
	criteria domain.FilterCriteria,
) *Storefront {
	return &Storefront{
		id:       id,
		catalog:  catalog,
		criteria: criteria,
	}
}

// SubscribeCart registers obs for cart updates and returns
// the function that unregisters it.
func (s *Storefront) SubscribeCart(obs port.CartObserver) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.cartSubs = append(s.cartSubs, cartSubscriber{id, obs})

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribeCart(id) })
	}
}

func (s *Storefront) unsubscribeCart(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartSubs = slices.DeleteFunc(slices.Clone(s.cartSubs), func(sub cartSubscriber) bool {
		return sub.id == id
	})
}

func (s *Storefront) SubscribeFilter(obs port.FilterObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterObs = append(s.filterObs, obs)
}

func (s *Storefront) Loading() bool {
	return s.catalog.Loading()
}

func (s *Storefront) Categories() []string {
	return s.catalog.Categories()
}

func (s *Storefront) Criteria() domain.FilterCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// FilteredProducts applies the current criteria to the current catalog.
func (s *Storefront) FilteredProducts() []domain.Product {
	criteria := s.Criteria()
	return criteria.Apply(s.catalog.Products())
}

func (s *Storefront) SelectCategory(category string) {
	s.updateCriteria(func(f domain.FilterCriteria) domain.FilterCriteria {
		f.Category = category
		return f
	})
}

func (s *Storefront) SetMinPrice(raw string) error {
	const op = "Storefront.SetMinPrice"

	b, err := domain.ParsePriceBound(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.updateCriteria(func(f domain.FilterCriteria) domain.FilterCriteria {
		f.MinPrice = b
		return f
	})
	return nil
}

func (s *Storefront) SetMaxPrice(raw string) error {
	const op = "Storefront.SetMaxPrice"

	b, err := domain.ParsePriceBound(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.updateCriteria(func(f domain.FilterCriteria) domain.FilterCriteria {
		f.MaxPrice = b
		return f
	})
	return nil
}

// SetFilter replaces the whole criteria. Either every field is applied
// or, when a price is invalid, none is.
func (s *Storefront) SetFilter(category, minPrice, maxPrice string) error {
	const op = "Storefront.SetFilter"

	minB, err := domain.ParsePriceBound(minPrice)
	if err != nil {
		return fmt.Errorf("%s: min: %w", op, err)
	}
	maxB, err := domain.ParsePriceBound(maxPrice)
	if err != nil {
		return fmt.Errorf("%s: max: %w", op, err)
	}

	s.updateCriteria(func(domain.FilterCriteria) domain.FilterCriteria {
		return domain.FilterCriteria{
			Category: category,
			MinPrice: minB,
			MaxPrice: maxB,
		}
	})
	return nil
}

func (s *Storefront) updateCriteria(
	fn func(domain.FilterCriteria) domain.FilterCriteria,
) {
	const op = "Storefront.updateCriteria"

	s.mu.Lock()
	s.criteria = fn(s.criteria)
	s.filterSeq++
	seq := s.filterSeq
	change := domain.FilterChange{SessionID: s.id, Criteria: s.criteria}
	observers := slices.Clone(s.filterObs)
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq < s.filterNotified {
		slog.Debug("stale filter change dropped", "op", op, "session", s.id)
		return
	}
	s.filterNotified = seq

	for _, obs := range observers {
		obs.OnFilterChange(change)
	}
}

func (s *Storefront) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// AddToCart adds one unit of the catalog product with productID.
func (s *Storefront) AddToCart(productID int64) error {
	const op = "Storefront.AddToCart"

	p, ok := s.catalog.Product(productID)
	if !ok {
		return fmt.Errorf("%s: %w: %d", op, domain.ErrProductNotFound, productID)
	}
	s.AddProduct(p)
	return nil
}

func (s *Storefront) AddProduct(p domain.Product) {
	s.updateCart(func(c domain.Cart) (domain.Cart, bool) {
		return c.Add(p)
	})
}

func (s *Storefront) RemoveFromCart(productID int64) {
	s.updateCart(func(c domain.Cart) (domain.Cart, bool) {
		return c.Remove(productID)
	})
}

// UpdateQuantity sets the quantity of a line, quantities below 1 are ignored.
func (s *Storefront) UpdateQuantity(productID int64, quantity int) {
	s.updateCart(func(c domain.Cart) (domain.Cart, bool) {
		return c.UpdateQuantity(productID, quantity)
	})
}

// ChangeQuantity moves the quantity of a line by delta relative to the
// current cart. Like [Storefront.UpdateQuantity] it never drops below 1.
func (s *Storefront) ChangeQuantity(productID int64, delta int) {
	s.updateCart(func(c domain.Cart) (domain.Cart, bool) {
		l, ok := c.Line(productID)
		if !ok {
			return c, false
		}
		return c.UpdateQuantity(productID, l.Quantity+delta)
	})
}

func (s *Storefront) ClearCart() {
	s.updateCart(func(c domain.Cart) (domain.Cart, bool) {
		return c.Clear()
	})
}

func (s *Storefront) Total() string {
	return domain.FormatMoney(s.Cart().Total())
}

func (s *Storefront) ItemsCount() int {
	return s.Cart().ItemsCount()
}

func (s *Storefront) updateCart(fn func(domain.Cart) (domain.Cart, bool)) {
	const op = "Storefront.updateCart"

	s.mu.Lock()
	cart, changed := fn(s.cart)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.cart = cart
	s.cartSeq++
	seq := s.cartSeq
	subs := slices.Clone(s.cartSubs)
	s.mu.Unlock()

	log := slog.With("op", op, "session", s.id)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq < s.cartNotified {
		log.Debug("stale cart update dropped", "seq", seq)
		return
	}
	s.cartNotified = seq

	update := domain.NewCartUpdate(s.id, cart)
	log.Debug("cart updated", "count", update.Count, "total", update.Total)
	for _, sub := range subs {
		sub.obs.OnCartUpdate(update)
	}
}

func (s *Storefront) PanelVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelVisible
}

func (s *Storefront) SetPanelVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panelVisible = visible
}

func (s *Storefront) TogglePanel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panelVisible = !s.panelVisible
	return s.panelVisible
}

// LineSubtotal is the price of l times its quantity with two decimals.
func (s *Storefront) LineSubtotal(l domain.CartLine) string {
	return domain.FormatMoney(l.Subtotal())
}

func (s *Storefront) CatalogSize() int {
	return len(s.catalog.Products())
}
