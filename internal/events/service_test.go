package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveEventWithPools(ctx context.Context, event *models.Event, pools []*models.Pool) error {
	args := m.Called(ctx, event, pools)
	return args.Error(0)
}

func (m *MockStore) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockStore) DeleteEvent(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store Store) *Service {
	s := NewService(store, 1000, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func validRequest() models.EventCreateRequest {
	return models.EventCreateRequest{
		Name:      "Jazz Night",
		Address:   "12 River Rd",
		EventTime: testNow.Add(72 * time.Hour),
		PoolSize:  2500,
		UnitPrice: decimal.RequireFromString("45.00"),
	}
}

func TestShardCapacity(t *testing.T) {
	assert.Equal(t, []int{1000, 1000, 500}, ShardCapacity(2500, 1000))
	assert.Equal(t, []int{1000}, ShardCapacity(1000, 1000))
	assert.Equal(t, []int{1}, ShardCapacity(1, 1000))
	assert.Equal(t, []int{3, 3, 1}, ShardCapacity(7, 3))
	assert.Nil(t, ShardCapacity(0, 1000))
	assert.Nil(t, ShardCapacity(10, 0))
}

func TestCreateEvent_ShardsCapacity(t *testing.T) {
	store := new(MockStore)
	store.On("SaveEventWithPools", mock.Anything, mock.AnythingOfType("*models.Event"), mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Event).ID = 9
		}).
		Return(nil)
	svc := newTestService(store)

	event, err := svc.CreateEvent(context.Background(), 3, validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(9), event.ID)
	assert.Equal(t, int64(3), event.OwnerID)
	assert.Equal(t, 2500, event.TotalCapacity)
	assert.Equal(t, testNow, event.CreatedAt)

	pools := store.Calls[0].Arguments.Get(2).([]*models.Pool)
	require.Len(t, pools, 3)
	sum := 0
	for _, p := range pools {
		sum += p.Remaining
	}
	assert.Equal(t, 2500, sum)
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.EventCreateRequest)
	}{
		{"empty name", func(r *models.EventCreateRequest) { r.Name = "" }},
		{"long name", func(r *models.EventCreateRequest) { r.Name = strings.Repeat("n", 251) }},
		{"empty address", func(r *models.EventCreateRequest) { r.Address = "" }},
		{"long address", func(r *models.EventCreateRequest) { r.Address = strings.Repeat("a", 501) }},
		{"past event", func(r *models.EventCreateRequest) { r.EventTime = testNow.Add(-time.Minute) }},
		{"zero capacity", func(r *models.EventCreateRequest) { r.PoolSize = 0 }},
		{"negative capacity", func(r *models.EventCreateRequest) { r.PoolSize = -5 }},
		{"zero price", func(r *models.EventCreateRequest) { r.UnitPrice = decimal.Zero }},
		{"negative price", func(r *models.EventCreateRequest) { r.UnitPrice = decimal.NewFromInt(-1) }},
		{"sub-cent price", func(r *models.EventCreateRequest) { r.UnitPrice = decimal.RequireFromString("1.005") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			svc := newTestService(store)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateEvent(context.Background(), 1, req)
			assert.ErrorIs(t, err, models.ErrInvalidEvent)
			store.AssertNotCalled(t, "SaveEventWithPools", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateEvent_StoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("SaveEventWithPools", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	svc := newTestService(store)

	_, err := svc.CreateEvent(context.Background(), 1, validRequest())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestDeleteEvent(t *testing.T) {
	store := new(MockStore)
	prices := new(MockInvalidator)
	store.On("GetEvent", mock.Anything, int64(5)).Return(&models.Event{ID: 5, OwnerID: 3}, nil)
	store.On("DeleteEvent", mock.Anything, int64(5)).Return(nil).Once()
	prices.On("Invalidate", mock.Anything, int64(5)).Return(nil).Once()

	svc := newTestService(store)
	svc.Prices = prices

	require.NoError(t, svc.DeleteEvent(context.Background(), 5, 3))
	store.AssertExpectations(t)
	prices.AssertExpectations(t)
}

func TestDeleteEvent_NotOwner(t *testing.T) {
	store := new(MockStore)
	store.On("GetEvent", mock.Anything, int64(5)).Return(&models.Event{ID: 5, OwnerID: 3}, nil)
	svc := newTestService(store)

	err := svc.DeleteEvent(context.Background(), 5, 4)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	store.AssertNotCalled(t, "DeleteEvent", mock.Anything, mock.Anything)
}

func TestDeleteEvent_NotFound(t *testing.T) {
	store := new(MockStore)
	store.On("GetEvent", mock.Anything, int64(5)).Return(nil, models.ErrEventNotFound)
	svc := newTestService(store)

	err := svc.DeleteEvent(context.Background(), 5, 3)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.NotErrorIs(t, err, models.ErrStoreUnavailable)
}
