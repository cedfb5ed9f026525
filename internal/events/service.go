package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/utils"
)

const DefaultShardSize = 1000

type Store interface {
	SaveEventWithPools(ctx context.Context, event *models.Event, pools []*models.Pool) error
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64) error
}

// PriceInvalidator drops cached prices of deleted events.
type PriceInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

type Service struct {
	Store     Store
	ShardSize int
	Prices    PriceInvalidator
	Logger    *logger.Logger

	now func() time.Time
}

func NewService(store Store, shardSize int, log *logger.Logger) *Service {
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}
	return &Service{Store: store, ShardSize: shardSize, Logger: log, now: time.Now}
}

// ShardCapacity splits total into pools of at most shardSize, the last one
// taking the remainder.
func ShardCapacity(total, shardSize int) []int {
	if total <= 0 || shardSize <= 0 {
		return nil
	}
	shards := make([]int, 0, (total+shardSize-1)/shardSize)
	for total > 0 {
		n := min(shardSize, total)
		shards = append(shards, n)
		total -= n
	}
	return shards
}

func (s *Service) validate(req models.EventCreateRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
	}
	if !req.EventTime.After(s.now()) {
		return fmt.Errorf("%w: event time must be in the future", models.ErrInvalidEvent)
	}
	if !req.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: ticket price must be greater than zero", models.ErrInvalidEvent)
	}
	if req.UnitPrice.Exponent() < -2 {
		return fmt.Errorf("%w: ticket price has more than two decimal places", models.ErrInvalidEvent)
	}
	return nil
}

// CreateEvent stores the event owned by ownerID with its capacity spread
// over pools of at most ShardSize units.
func (s *Service) CreateEvent(ctx context.Context, ownerID int64, req models.EventCreateRequest) (*models.Event, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	shards := ShardCapacity(req.PoolSize, s.ShardSize)
	pools := make([]*models.Pool, len(shards))
	for i, n := range shards {
		pools[i] = &models.Pool{Remaining: n}
	}

	event := &models.Event{
		Name:          req.Name,
		Address:       req.Address,
		EventTime:     req.EventTime.UTC(),
		TotalCapacity: req.PoolSize,
		UnitPrice:     req.UnitPrice,
		OwnerID:       ownerID,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.Store.SaveEventWithPools(ctx, event, pools); err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("failed to save event %q: %v", req.Name, err))
		return nil, fmt.Errorf("save event: %w: %w", models.ErrStoreUnavailable, err)
	}
	event.Pools = pools

	s.Logger.Info("EVENT", fmt.Sprintf("event %d created by user %d with %d unit(s) in %d pool(s)", event.ID, ownerID, event.TotalCapacity, len(pools)))
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}
	return event, nil
}

// DeleteEvent removes an event and its pools. Only the owner may do this.
func (s *Service) DeleteEvent(ctx context.Context, eventID, requesterID int64) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.OwnerID != requesterID {
		s.Logger.LogSecurity("EVENT_DELETE_DENIED", fmt.Sprintf("user %d tried to delete event %d of user %d", requesterID, eventID, event.OwnerID))
		return models.ErrUnauthorized
	}

	if err := s.Store.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return err
		}
		return fmt.Errorf("delete event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}

	if s.Prices != nil {
		if err := s.Prices.Invalidate(ctx, eventID); err != nil {
			s.Logger.Warn("PRICE", fmt.Sprintf("could not drop cached price of event %d: %v", eventID, err))
		}
	}

	s.Logger.Info("EVENT", fmt.Sprintf("event %d deleted by owner", eventID))
	return nil
}
