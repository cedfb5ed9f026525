package claims_test

import (
	"context"
	"errors"
	"math"
	"testing"

	claims "ms-allocation/internal/claims/service"
	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceCache struct {
	mock.Mock
}

func (m *MockPriceCache) Get(ctx context.Context, eventID int64) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockPriceCache) Set(ctx context.Context, eventID int64, price decimal.Decimal) error {
	args := m.Called(ctx, eventID, price)
	return args.Error(0)
}

func TestUnitPrice_CacheHit(t *testing.T) {
	cache := new(MockPriceCache)
	store := new(MockCapacityStore)
	cache.On("Get", mock.Anything, int64(1)).Return(decimal.NewFromInt(30), true, nil)

	r := claims.NewPriceResolver(store, cache, nil)
	price, err := r.UnitPrice(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(30).Equal(price))
	store.AssertNotCalled(t, "GetUnitPrice", mock.Anything, mock.Anything)
}

func TestUnitPrice_MissPopulatesCache(t *testing.T) {
	cache := new(MockPriceCache)
	store := new(MockCapacityStore)
	price := decimal.RequireFromString("12.99")
	cache.On("Get", mock.Anything, int64(1)).Return(decimal.Zero, false, nil)
	store.On("GetUnitPrice", mock.Anything, int64(1)).Return(price, nil).Once()
	cache.On("Set", mock.Anything, int64(1), price).Return(nil).Once()

	r := claims.NewPriceResolver(store, cache, nil)
	got, err := r.UnitPrice(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, price.Equal(got))
	cache.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestUnitPrice_CacheFailuresFallBackToStore(t *testing.T) {
	cache := new(MockPriceCache)
	store := new(MockCapacityStore)
	cache.On("Get", mock.Anything, int64(1)).Return(decimal.Zero, false, errors.New("redis down"))
	store.On("GetUnitPrice", mock.Anything, int64(1)).Return(decimal.NewFromInt(8), nil)
	cache.On("Set", mock.Anything, int64(1), mock.Anything).Return(errors.New("redis down"))

	r := claims.NewPriceResolver(store, cache, nil)
	got, err := r.UnitPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(got))
}

func TestUnitPrice_StoreErrors(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("GetUnitPrice", mock.Anything, int64(1)).Return(decimal.Zero, models.ErrEventNotFound)
	store.On("GetUnitPrice", mock.Anything, int64(2)).Return(decimal.Zero, errors.New("i/o timeout"))

	r := claims.NewPriceResolver(store, nil, nil)

	_, err := r.UnitPrice(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.NotErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = r.UnitPrice(context.Background(), 2)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestQuotaChecker(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, "10", 10)
	ctx := context.Background()
	_, err := store.CreateClaim(ctx, models.Claim{EventID: 1, HolderID: 5, Quantity: 1, State: models.ClaimStateBooked})
	require.NoError(t, err)
	_, err = store.CreateClaim(ctx, models.Claim{EventID: 1, HolderID: 5, Quantity: 2, State: models.ClaimStateCancelled})
	require.NoError(t, err)

	q := claims.NewQuotaChecker(store, 0)
	assert.Equal(t, claims.DefaultMaxPerUser, q.MaxPerUser)

	held, err := q.CurrentHoldings(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, held)

	assert.NoError(t, q.Check(ctx, 5, 1, 1))
	assert.ErrorIs(t, q.Check(ctx, 5, 1, 2), models.ErrQuotaExceeded)
	assert.ErrorIs(t, q.Check(ctx, 5, 1, math.MaxInt), models.ErrQuotaExceeded)

	// An oversized request is rejected without reading holdings.
	store.sumErr = errors.New("db down")
	assert.ErrorIs(t, q.Check(ctx, 5, 1, 3), models.ErrQuotaExceeded)
}
