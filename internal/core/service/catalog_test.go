package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogFetcher struct {
	mock.Mock
}

func (f *MockCatalogFetcher) FetchProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	args := f.Called(ctx)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Error(1)
}

func testCatalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Title: "A", Price: decimal.RequireFromString("9.99"), Category: "x"},
		{ID: 2, Title: "B", Price: decimal.RequireFromString("19.99"), Category: "y"},
		{ID: 3, Title: "C", Price: decimal.RequireFromString("5"), Category: "x"},
	}
}

func loadedStore(t *testing.T, ps []domain.Product) *service.CatalogStore {
	t.Helper()
	fetcher := new(MockCatalogFetcher)
	fetcher.On("FetchProducts", mock.Anything).Return(ps, nil)
	store := service.NewCatalogStore(fetcher)
	store.Load(t.Context())
	return store
}

func TestCatalogStoreLoad(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fetcher := new(MockCatalogFetcher)
		fetcher.On("FetchProducts", mock.Anything).Return(testCatalog(), nil).Once()

		store := service.NewCatalogStore(fetcher)
		require.True(t, store.Loading())

		store.Load(t.Context())

		assert.False(t, store.Loading())
		assert.Len(t, store.Products(), 3)
		assert.Equal(t, []string{"x", "y"}, store.Categories())
		fetcher.AssertExpectations(t)

		select {
		case <-store.Loaded():
		default:
			t.Fatal("loaded channel is not closed")
		}
	})

	t.Run("Failure", func(t *testing.T) {
		fetcher := new(MockCatalogFetcher)
		fetcher.On("FetchProducts", mock.Anything).
			Return(nil, errors.New("connection refused")).Once()

		store := service.NewCatalogStore(fetcher)
		store.Load(t.Context())

		assert.False(t, store.Loading())
		assert.Empty(t, store.Products())
		assert.Empty(t, store.Categories())
	})

	t.Run("FailureKeepsPrevious", func(t *testing.T) {
		fetcher := new(MockCatalogFetcher)
		fetcher.On("FetchProducts", mock.Anything).Return(testCatalog(), nil).Once()
		fetcher.On("FetchProducts", mock.Anything).
			Return(nil, errors.New("bad gateway")).Once()

		store := service.NewCatalogStore(fetcher)
		store.Load(t.Context())
		store.Load(t.Context())

		assert.Len(t, store.Products(), 3)
		assert.False(t, store.Loading())
	})

	t.Run("CancelledDiscardsResult", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		fetcher := new(MockCatalogFetcher)
		fetcher.On("FetchProducts", mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(testCatalog(), nil).Once()

		store := service.NewCatalogStore(fetcher)
		store.Load(ctx)

		assert.False(t, store.Loading())
		assert.Empty(t, store.Products())
	})
}

func TestCatalogStoreProduct(t *testing.T) {
	store := loadedStore(t, testCatalog())

	p, ok := store.Product(2)
	require.True(t, ok)
	assert.Equal(t, "B", p.Title)

	_, ok = store.Product(42)
	assert.False(t, ok)
}
