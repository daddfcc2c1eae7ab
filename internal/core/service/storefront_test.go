package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/niksmo/fakestore/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartRecorder struct {
	mu      sync.Mutex
	updates []domain.CartUpdate
}

func (r *cartRecorder) OnCartUpdate(u domain.CartUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *cartRecorder) last(t *testing.T) domain.CartUpdate {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.updates)
	return r.updates[len(r.updates)-1]
}

type filterRecorder struct {
	changes []domain.FilterChange
}

func (r *filterRecorder) OnFilterChange(c domain.FilterChange) {
	r.changes = append(r.changes, c)
}

// blockingFilterObserver holds its first notification until release is closed.
type blockingFilterObserver struct {
	entered chan struct{}
	release chan struct{}

	mu         sync.Mutex
	calls      int
	categories []string
}

func newBlockingFilterObserver() *blockingFilterObserver {
	return &blockingFilterObserver{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (o *blockingFilterObserver) OnFilterChange(c domain.FilterChange) {
	o.mu.Lock()
	o.calls++
	first := o.calls == 1
	o.mu.Unlock()
	if first {
		close(o.entered)
		<-o.release
	}
	o.mu.Lock()
	o.categories = append(o.categories, c.Criteria.Category)
	o.mu.Unlock()
}

func defaultCriteria(t *testing.T) domain.FilterCriteria {
	t.Helper()
	minB, err := domain.ParsePriceBound("0")
	require.NoError(t, err)
	maxB, err := domain.ParsePriceBound("1000")
	require.NoError(t, err)
	return domain.FilterCriteria{MinPrice: minB, MaxPrice: maxB}
}

func newStorefront(t *testing.T) *service.Storefront {
	t.Helper()
	return service.NewStorefront(
		"session-1", loadedStore(t, testCatalog()), defaultCriteria(t),
	)
}

func productIDs(ps []domain.Product) (ids []int64) {
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestStorefrontFilter(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		sf := newStorefront(t)
		assert.Equal(t, []int64{1, 2, 3}, productIDs(sf.FilteredProducts()))
	})

	t.Run("CategoryAndRange", func(t *testing.T) {
		sf := service.NewStorefront("s", loadedStore(t, testCatalog()[:2]), defaultCriteria(t))
		sf.SelectCategory("x")
		require.NoError(t, sf.SetMinPrice("0"))
		require.NoError(t, sf.SetMaxPrice("100"))
		assert.Equal(t, []int64{1}, productIDs(sf.FilteredProducts()))
	})

	t.Run("AllCategories", func(t *testing.T) {
		sf := newStorefront(t)
		sf.SelectCategory("y")
		sf.SelectCategory("")
		assert.Len(t, sf.FilteredProducts(), 3)
	})

	t.Run("InvalidPriceKeepsBound", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.SetMaxPrice("10"))

		err := sf.SetMaxPrice("ten")
		require.ErrorIs(t, err, domain.ErrInvalidPrice)

		assert.Equal(t, "10", domain.FormatPriceBound(sf.Criteria().MaxPrice))
		assert.Equal(t, []int64{1, 3}, productIDs(sf.FilteredProducts()))
	})

	t.Run("BlankPriceIsUnbounded", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.SetMaxPrice("1"))
		require.Empty(t, sf.FilteredProducts())

		require.NoError(t, sf.SetMaxPrice(""))
		assert.Len(t, sf.FilteredProducts(), 3)
	})

	t.Run("SetFilterAllOrNothing", func(t *testing.T) {
		sf := newStorefront(t)
		err := sf.SetFilter("y", "1", "abc")
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
		assert.Equal(t, defaultCriteria(t), sf.Criteria())

		require.NoError(t, sf.SetFilter("y", "1", "50"))
		assert.Equal(t, []int64{2}, productIDs(sf.FilteredProducts()))
	})

	t.Run("NotifiesObservers", func(t *testing.T) {
		sf := newStorefront(t)
		rec := new(filterRecorder)
		sf.SubscribeFilter(rec)

		sf.SelectCategory("x")
		_ = sf.SetMinPrice("bad")

		require.Len(t, rec.changes, 1)
		assert.Equal(t, "session-1", rec.changes[0].SessionID)
		assert.Equal(t, "x", rec.changes[0].Criteria.Category)
	})

	t.Run("ConcurrentEditsEndOnLatest", func(t *testing.T) {
		sf := newStorefront(t)
		obs := newBlockingFilterObserver()
		sf.SubscribeFilter(obs)

		done := make(chan struct{})
		go func() {
			defer close(done)
			sf.SelectCategory("x")
		}()
		<-obs.entered

		second := make(chan struct{})
		go func() {
			defer close(second)
			sf.SelectCategory("y")
		}()
		require.Eventually(t, func() bool {
			return sf.Criteria().Category == "y"
		}, time.Second, time.Millisecond)

		close(obs.release)
		<-done
		<-second

		obs.mu.Lock()
		defer obs.mu.Unlock()
		assert.Equal(t, []string{"x", "y"}, obs.categories)
	})

	t.Run("ReflectsCatalogContents", func(t *testing.T) {
		fetcher := new(MockCatalogFetcher)
		fetcher.On("FetchProducts", mock.Anything).Return(testCatalog(), nil)
		store := service.NewCatalogStore(fetcher)
		sf := service.NewStorefront("s", store, defaultCriteria(t))

		assert.True(t, sf.Loading())
		assert.Empty(t, sf.FilteredProducts())

		store.Load(t.Context())
		assert.False(t, sf.Loading())
		assert.Len(t, sf.FilteredProducts(), 3)
	})
}

func TestStorefrontCart(t *testing.T) {
	t.Run("AddMergesAndCounts", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.AddToCart(1))
		require.NoError(t, sf.AddToCart(1))
		require.NoError(t, sf.AddToCart(2))

		lines := sf.Cart().Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, int64(1), lines[0].ID)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, int64(2), lines[1].ID)
		assert.Equal(t, 1, lines[1].Quantity)
		assert.Equal(t, 3, sf.ItemsCount())
	})

	t.Run("AddUnknownProduct", func(t *testing.T) {
		sf := newStorefront(t)
		err := sf.AddToCart(42)
		require.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.Zero(t, sf.Cart().Len())
	})

	t.Run("Total", func(t *testing.T) {
		sf := newStorefront(t)
		sf.AddProduct(domain.Product{ID: 10, Price: decimal.NewFromInt(10)})
		sf.AddProduct(domain.Product{ID: 10, Price: decimal.NewFromInt(10)})
		for range 3 {
			sf.AddProduct(domain.Product{ID: 11, Price: decimal.NewFromInt(5)})
		}
		assert.Equal(t, "35.00", sf.Total())

		sf.ClearCart()
		assert.Equal(t, "0.00", sf.Total())
	})

	t.Run("RemoveMissingIsNoop", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.AddToCart(1))
		before := sf.Cart().Lines()

		sf.RemoveFromCart(42)
		assert.Equal(t, before, sf.Cart().Lines())

		sf.RemoveFromCart(1)
		assert.Zero(t, sf.Cart().Len())
	})

	t.Run("ChangeQuantity", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.AddToCart(1))

		sf.ChangeQuantity(1, 1)
		sf.ChangeQuantity(1, 1)
		assert.Equal(t, 3, sf.ItemsCount())

		sf.ChangeQuantity(1, -5)
		assert.Equal(t, 3, sf.ItemsCount())

		sf.ChangeQuantity(1, -2)
		assert.Equal(t, 1, sf.ItemsCount())

		sf.ChangeQuantity(2, 1)
		assert.Equal(t, 1, sf.Cart().Len())
	})

	t.Run("UpdateQuantityBelowOneIsNoop", func(t *testing.T) {
		sf := newStorefront(t)
		require.NoError(t, sf.AddToCart(1))
		sf.UpdateQuantity(1, 4)
		sf.UpdateQuantity(1, 0)

		line, ok := sf.Cart().Line(1)
		require.True(t, ok)
		assert.Equal(t, 4, line.Quantity)
	})
}

func TestStorefrontCartObservers(t *testing.T) {
	t.Run("NotifiedOnChange", func(t *testing.T) {
		sf := newStorefront(t)
		rec := new(cartRecorder)
		sf.SubscribeCart(rec)

		require.NoError(t, sf.AddToCart(1))
		require.NoError(t, sf.AddToCart(1))
		require.NoError(t, sf.AddToCart(2))

		u := rec.last(t)
		assert.Equal(t, "session-1", u.SessionID)
		assert.Equal(t, 3, u.Count)
		assert.Equal(t, "39.97", u.Total)
		assert.Len(t, u.Items, 2)
		assert.Len(t, rec.updates, 3)
	})

	t.Run("SilentOnNoop", func(t *testing.T) {
		sf := newStorefront(t)
		rec := new(cartRecorder)
		sf.SubscribeCart(rec)

		sf.RemoveFromCart(1)
		sf.UpdateQuantity(1, 3)
		sf.ClearCart()

		assert.Empty(t, rec.updates)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		sf := newStorefront(t)
		var calls int
		unsubscribe := sf.SubscribeCart(port.CartObserverFunc(func(domain.CartUpdate) {
			calls++
		}))

		require.NoError(t, sf.AddToCart(1))
		unsubscribe()
		unsubscribe()
		require.NoError(t, sf.AddToCart(1))

		assert.Equal(t, 1, calls)
	})

	t.Run("ConcurrentMutationsEndOnLatest", func(t *testing.T) {
		sf := newStorefront(t)

		entered := make(chan struct{})
		release := make(chan struct{})
		var (
			mu     sync.Mutex
			counts []int
			first  = true
		)
		sf.SubscribeCart(port.CartObserverFunc(func(u domain.CartUpdate) {
			mu.Lock()
			block := first
			first = false
			mu.Unlock()
			if block {
				close(entered)
				<-release
			}
			mu.Lock()
			counts = append(counts, u.Count)
			mu.Unlock()
		}))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, sf.AddToCart(1))
		}()
		<-entered

		go func() {
			defer wg.Done()
			assert.NoError(t, sf.AddToCart(1))
		}()
		require.Eventually(t, func() bool {
			return sf.ItemsCount() == 2
		}, time.Second, time.Millisecond)

		close(release)
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, counts)
		assert.Equal(t, 2, counts[len(counts)-1])
		assert.IsIncreasing(t, counts)
	})

	t.Run("ObserverMayReadState", func(t *testing.T) {
		sf := newStorefront(t)
		var seen int
		sf.SubscribeCart(port.CartObserverFunc(func(domain.CartUpdate) {
			seen = sf.ItemsCount()
		}))

		require.NoError(t, sf.AddToCart(3))
		assert.Equal(t, 1, seen)
	})
}

func TestStorefrontPanel(t *testing.T) {
	sf := newStorefront(t)
	assert.False(t, sf.PanelVisible())

	assert.True(t, sf.TogglePanel())
	assert.True(t, sf.PanelVisible())

	sf.SetPanelVisible(false)
	assert.False(t, sf.PanelVisible())
}
