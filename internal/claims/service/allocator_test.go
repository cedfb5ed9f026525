package claims_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	claims "ms-allocation/internal/claims/service"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCapacityStore struct {
	mock.Mock
}

func (m *MockCapacityStore) ListPoolsWithCapacity(ctx context.Context, eventID int64) ([]models.Pool, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Pool), args.Error(1)
}

func (m *MockCapacityStore) ListPools(ctx context.Context, eventID int64) ([]models.Pool, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Pool), args.Error(1)
}

func (m *MockCapacityStore) ConditionalDecrement(ctx context.Context, poolID int64, n int) (bool, error) {
	args := m.Called(ctx, poolID, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapacityStore) Increment(ctx context.Context, poolID int64, n int) error {
	args := m.Called(ctx, poolID, n)
	return args.Error(0)
}

func (m *MockCapacityStore) GetUnitPrice(ctx context.Context, eventID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestAllocate_SkipsPoolDrainedSinceSnapshot(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("ListPoolsWithCapacity", mock.Anything, int64(1)).Return([]models.Pool{
		{ID: 10, EventID: 1, Remaining: 3},
		{ID: 11, EventID: 1, Remaining: 3},
	}, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(10), 2).Return(false, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(11), 2).Return(true, nil)

	alloc := claims.NewAllocator(store, fixedOrder{}, nil)
	got, err := alloc.Allocate(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Equal(t, []claims.Reservation{{PoolID: 11, Quantity: 2}}, got)
	store.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocate_ShortfallReturnsWhatWasTaken(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("ListPoolsWithCapacity", mock.Anything, int64(1)).Return([]models.Pool{
		{ID: 10, EventID: 1, Remaining: 1},
		{ID: 11, EventID: 1, Remaining: 1},
		{ID: 12, EventID: 1, Remaining: 2},
	}, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(10), 1).Return(true, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(11), 1).Return(true, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(12), 2).Return(false, nil)
	store.On("Increment", mock.Anything, int64(10), 1).Return(nil).Once()
	store.On("Increment", mock.Anything, int64(11), 1).Return(nil).Once()

	var buf bytes.Buffer
	alloc := claims.NewAllocator(store, fixedOrder{}, logger.NewWriterLogger(&buf))
	_, err := alloc.Allocate(context.Background(), 1, 4)

	assert.ErrorIs(t, err, models.ErrInsufficientCapacity)
	assert.Contains(t, buf.String(), "short by 2 of 4, rolling back 2 unit(s) from 2 reservation(s)")
	store.AssertExpectations(t)
}

func TestAllocate_ReleasesPartialOnStoreError(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("ListPoolsWithCapacity", mock.Anything, int64(1)).Return([]models.Pool{
		{ID: 10, EventID: 1, Remaining: 1},
		{ID: 11, EventID: 1, Remaining: 3},
	}, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(10), 1).Return(true, nil)
	store.On("ConditionalDecrement", mock.Anything, int64(11), 1).Return(false, errors.New("broken pipe"))
	store.On("Increment", mock.Anything, int64(10), 1).Return(nil).Once()

	alloc := claims.NewAllocator(store, fixedOrder{}, nil)
	_, err := alloc.Allocate(context.Background(), 1, 2)

	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	store.AssertExpectations(t)
}

func TestAllocate_ListError(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("ListPoolsWithCapacity", mock.Anything, int64(1)).Return(nil, errors.New("refused"))

	alloc := claims.NewAllocator(store, nil, nil)
	_, err := alloc.Allocate(context.Background(), 1, 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestRelease_ContinuesPastFailures(t *testing.T) {
	store := new(MockCapacityStore)
	store.On("Increment", mock.Anything, int64(1), 1).Return(errors.New("timeout")).Once()
	store.On("Increment", mock.Anything, int64(2), 1).Return(nil).Once()

	alloc := claims.NewAllocator(store, nil, nil)
	alloc.Release(context.Background(), []claims.Reservation{{PoolID: 1, Quantity: 1}, {PoolID: 2, Quantity: 1}})

	store.AssertExpectations(t)
}
